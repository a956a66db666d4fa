package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/onshopfront/embedded-go/pkg/database"
	"github.com/onshopfront/embedded-go/pkg/events"
	"github.com/onshopfront/embedded-go/pkg/sale"
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// Database returns a client for the host device's local database. The
// client is constructed on first use and shared afterwards.
func (a *Application) Database() *database.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		a.db = database.NewClient(a, a.logger).WithMetrics(a.metrics)
	}
	return a.db
}

// GetCurrentSale fetches the host's current sale and hydrates it into a
// local aggregate.
func (a *Application) GetCurrentSale(ctx context.Context) (*sale.Sale, error) {
	data, err := a.Request(ctx, wire.CommandRequestSale, wire.EventResponseCurrentSale, nil)
	if err != nil {
		return nil, err
	}
	var snap sale.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode current sale: %w", err)
	}
	return sale.FromSnapshot(snap), nil
}

// CreateSale asks the host to create a sale from the snapshot. The host
// validates its own preconditions (register, user, tender support,
// overpayment) and rejection surfaces as ErrCreateSaleRejected.
func (a *Application) CreateSale(ctx context.Context, snap sale.Snapshot) error {
	data, err := a.Request(ctx, wire.CommandCreateSale, wire.EventResponseCreateSale, snap)
	if err != nil {
		return err
	}
	var result struct {
		Success bool   `json:"success"`
		Reason  string `json:"reason"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &result); err != nil {
			return fmt.Errorf("decode create-sale response: %w", err)
		}
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrCreateSaleRejected, result.Reason)
	}
	return nil
}

// GetLocation fetches the register context the frame is embedded in.
func (a *Application) GetLocation(ctx context.Context) (events.Location, error) {
	data, err := a.Request(ctx, wire.CommandRequestLocation, wire.EventResponseLocation, nil)
	if err != nil {
		return events.Location{}, err
	}
	var loc events.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return events.Location{}, fmt.Errorf("decode location: %w", err)
	}
	return loc, nil
}

// GetOption fetches a host option by key, returning fallback when the
// host has no value for it.
func (a *Application) GetOption(ctx context.Context, key string, fallback any) (json.RawMessage, error) {
	payload := map[string]any{"key": key, "default": fallback}
	data, err := a.Request(ctx, wire.CommandRequestOption, wire.EventResponseOption, payload)
	if err != nil {
		return nil, err
	}
	var result struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode option %q: %w", key, err)
	}
	return result.Value, nil
}

// GetToken fetches an authentication token scoped to the embedded app.
func (a *Application) GetToken(ctx context.Context) (string, error) {
	data, err := a.Request(ctx, wire.CommandGetToken, wire.EventResponseToken, nil)
	if err != nil {
		return "", err
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return result.Token, nil
}

// RequestAudioPermission asks the host for audio playback permission.
func (a *Application) RequestAudioPermission(ctx context.Context) (bool, error) {
	payload := map[string]string{"request": "permission"}
	data, err := a.Request(ctx, wire.CommandAudioPermission, wire.EventResponseAudio, payload)
	if err != nil {
		return false, err
	}
	var result struct {
		Granted bool `json:"granted"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return false, fmt.Errorf("decode audio permission: %w", err)
	}
	return result.Granted, nil
}

// PreloadAudio asks the host to fetch and cache an audio asset.
func (a *Application) PreloadAudio(ctx context.Context, url string) error {
	_, err := a.Request(ctx, wire.CommandAudioPreload, wire.EventResponseAudio, map[string]string{"url": url})
	return err
}

// PlayAudio plays a previously preloaded audio asset.
func (a *Application) PlayAudio(ctx context.Context, url string) error {
	_, err := a.Request(ctx, wire.CommandAudioPlay, wire.EventResponseAudio, map[string]string{"url": url})
	return err
}

// CheckGiftCardCode asks the host whether a gift card code is valid and
// redeemable.
func (a *Application) CheckGiftCardCode(ctx context.Context, code string) (events.GiftCardCheckResult, error) {
	data, err := a.Request(ctx, wire.CommandCheckGiftCard, wire.EventResponseGiftCard, map[string]string{"code": code})
	if err != nil {
		return events.GiftCardCheckResult{}, err
	}
	var result events.GiftCardCheckResult
	if err := json.Unmarshal(data, &result); err != nil {
		return events.GiftCardCheckResult{}, fmt.Errorf("decode gift card check: %w", err)
	}
	return result, nil
}

// GetOrder fetches a fulfilment order by ID.
func (a *Application) GetOrder(ctx context.Context, orderID string) (events.FulfilmentOrder, error) {
	data, err := a.Request(ctx, wire.CommandGetOrder, wire.EventResponseOrder, map[string]string{"orderId": orderID})
	if err != nil {
		return events.FulfilmentOrder{}, err
	}
	var order events.FulfilmentOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return events.FulfilmentOrder{}, fmt.Errorf("decode order: %w", err)
	}
	return order, nil
}

// CompleteOrder marks a fulfilment order as completed on the host.
func (a *Application) CompleteOrder(orderID string) error {
	return a.bridge.SendMessage(wire.CommandCompleteOrder, map[string]string{"orderId": orderID}, "")
}

// CancelOrder cancels a fulfilment order on the host.
func (a *Application) CancelOrder(orderID string) error {
	return a.bridge.SendMessage(wire.CommandCancelOrder, map[string]string{"orderId": orderID}, "")
}

// Download asks the host to download the given URL on the device.
func (a *Application) Download(url string) error {
	return a.bridge.SendMessage(wire.CommandDownload, map[string]string{"url": url}, "")
}

// Redirect asks the host to navigate the embedding frame.
func (a *Application) Redirect(url string) error {
	return a.bridge.SendMessage(wire.CommandRedirect, map[string]string{"url": url}, "")
}

// PrintReceipt asks the host to print arbitrary receipt content.
func (a *Application) PrintReceipt(content string) error {
	return a.bridge.SendMessage(wire.CommandPrintReceipt, map[string]string{"content": content}, "")
}
