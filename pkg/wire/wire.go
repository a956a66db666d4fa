// Package wire defines the message envelope and name enumerations shared
// by both ends of the embedded channel. Commands travel from the embedded
// application to the host; events travel from the host to the embedded
// application. The two namespaces never overlap.
package wire

import "encoding/json"

// Envelope is the single message shape carried by the channel in both
// directions. RequestID is present only on correlated request/response
// traffic.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// Command names sent from the embedded application to the host.
type Command string

const (
	CommandReady             Command = "ready"
	CommandSendAction        Command = "action.send"
	CommandRequestSale       Command = "sale.request"
	CommandSaleUpdate        Command = "sale.update"
	CommandCreateSale        Command = "sale.create"
	CommandRequestLocation   Command = "location.request"
	CommandRequestOption     Command = "option.request"
	CommandDatabaseRequest   Command = "database.request"
	CommandAudioPermission   Command = "audio.permission"
	CommandAudioPreload      Command = "audio.preload"
	CommandAudioPlay         Command = "audio.play"
	CommandPrintReceipt      Command = "receipt.print"
	CommandRedirect          Command = "navigation.redirect"
	CommandDownload          Command = "navigation.download"
	CommandGetToken          Command = "token.request"
	CommandCheckGiftCard     Command = "giftcard.check"
	CommandGetOrder          Command = "fulfilment.getOrder"
	CommandCompleteOrder     Command = "fulfilment.completeOrder"
	CommandCancelOrder       Command = "fulfilment.cancelOrder"
	CommandUnregisterActions Command = "action.unregister"
	CommandRespond           Command = "event.response"
)

// Event names sent from the host to the embedded application.
type Event string

const (
	EventReady                  Event = "READY"
	EventCallback               Event = "CALLBACK_EVENT"
	EventResponseCurrentSale    Event = "RESPONSE_CURRENT_SALE"
	EventResponseCreateSale     Event = "RESPONSE_CREATE_SALE"
	EventResponseLocation       Event = "RESPONSE_LOCATION"
	EventResponseOption         Event = "RESPONSE_OPTION"
	EventResponseDatabase       Event = "RESPONSE_DATABASE_REQUEST"
	EventResponseAudio          Event = "RESPONSE_AUDIO_REQUEST"
	EventResponseToken          Event = "RESPONSE_TOKEN"
	EventResponseGiftCard       Event = "RESPONSE_GIFT_CARD_CODE"
	EventResponseOrder          Event = "RESPONSE_ORDER"
	EventRequestSettings        Event = "REQUEST_SETTINGS"
	EventRequestButtons         Event = "REQUEST_BUTTONS"
	EventRequestTableColumns    Event = "REQUEST_TABLE_COLUMNS"
	EventRequestSellScreenOpts  Event = "REQUEST_SELL_SCREEN_OPTIONS"
	EventSaleComplete           Event = "SALE_COMPLETE"
	EventReceiptRequest         Event = "RECEIPT_REQUEST"
	EventAudioReady             Event = "AUDIO_READY"
	EventAudioPermissionChange  Event = "AUDIO_PERMISSION_CHANGE"
	EventFulfilmentGetOrder     Event = "FULFILMENT_GET_ORDER"
	EventFulfilmentProcessOrder Event = "FULFILMENT_PROCESS_ORDER"
	EventFulfilmentApproval     Event = "FULFILMENT_ORDER_APPROVAL"
	EventFulfilmentCompleted    Event = "FULFILMENT_ORDER_COMPLETED"
	EventGiftCardCodeCheck      Event = "GIFT_CARD_CODE_CHECK"
)

// Direct sale-mutation notifications. These are host events too, but they
// are dispatched through their own table: no request ID, no response.
const (
	EventSaleAddProduct     Event = "SALE_ADD_PRODUCT"
	EventSaleRemoveProduct  Event = "SALE_REMOVE_PRODUCT"
	EventSaleUpdateProducts Event = "SALE_UPDATE_PRODUCTS"
	EventSaleChangeQuantity Event = "SALE_CHANGE_QUANTITY"
	EventSaleAddCustomer    Event = "SALE_ADD_CUSTOMER"
	EventSaleRemoveCustomer Event = "SALE_REMOVE_CUSTOMER"
	EventSaleClear          Event = "SALE_CLEAR"
)

// SaleEvents lists the direct sale-mutation notification names.
func SaleEvents() []Event {
	return []Event{
		EventSaleAddProduct,
		EventSaleRemoveProduct,
		EventSaleUpdateProducts,
		EventSaleChangeQuantity,
		EventSaleAddCustomer,
		EventSaleRemoveCustomer,
		EventSaleClear,
	}
}

// IsResponseEvent reports whether the event is the response half of a
// correlated request/response exchange initiated by the embedded side.
func IsResponseEvent(e Event) bool {
	switch e {
	case EventResponseCurrentSale, EventResponseCreateSale, EventResponseLocation,
		EventResponseOption, EventResponseDatabase, EventResponseAudio,
		EventResponseToken, EventResponseGiftCard, EventResponseOrder:
		return true
	}
	return false
}

// IsSaleEvent reports whether the event belongs to the direct
// sale-mutation dispatch table.
func IsSaleEvent(e Event) bool {
	switch e {
	case EventSaleAddProduct, EventSaleRemoveProduct, EventSaleUpdateProducts,
		EventSaleChangeQuantity, EventSaleAddCustomer, EventSaleRemoveCustomer,
		EventSaleClear:
		return true
	}
	return false
}

// Marshal encodes v into an envelope's data field.
func Marshal(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
