package window

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ignaciov/matechat/internal/wire"
)

// Requester issues correlated request/response calls over the gateway
// connection. Satisfied by *transport.Client.
type Requester interface {
	Request(ctx context.Context, event string, payload any) (json.RawMessage, error)
}

// GatewayFetcher fetches message pages with fetch-messages requests.
type GatewayFetcher struct {
	rq Requester
}

// NewGatewayFetcher wraps a requester as a Fetcher.
func NewGatewayFetcher(rq Requester) *GatewayFetcher {
	return &GatewayFetcher{rq: rq}
}

// FetchPage implements Fetcher.
func (g *GatewayFetcher) FetchPage(ctx context.Context, chatID string, limit int, beforeID string) ([]wire.Message, error) {
	payload, err := g.rq.Request(ctx, wire.EventFetchMessages, wire.FetchMessagesRequest{
		ChatID: chatID,
		Limit:  limit,
		Before: beforeID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	page, err := wire.ParseMessagePage(payload)
	if err != nil {
		return nil, err
	}
	return page, nil
}
