package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"lostFoundWs/internal/modules/realtime/application/port"
	"lostFoundWs/internal/shared/normalization"
)

// ItemOwnerHTTPClient reads item owners from the CRUD API's GET /api/items/{id}.
type ItemOwnerHTTPClient struct {
	rest   *RESTClient
	logger *slog.Logger
}

func NewItemOwnerHTTPClient(rest *RESTClient, logger *slog.Logger) *ItemOwnerHTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemOwnerHTTPClient{rest: rest, logger: logger.With(slog.String("component", "item-owner-client"))}
}

func (c *ItemOwnerHTTPClient) ItemOwner(ctx context.Context, itemID int64) (int64, error) {
	req, err := c.rest.NewRequest(ctx, http.MethodGet, "/api/items/"+strconv.FormatInt(itemID, 10), nil)
	if err != nil {
		return 0, err
	}

	res, err := c.rest.Do(req)
	if err != nil {
		return 0, fmt.Errorf("item owner request failed: %w", err)
	}
	defer res.Body.Close()
	c.logger.Debug("item owner response", slog.Int("status", res.StatusCode), slog.Int64("itemId", itemID))

	switch res.StatusCode {
	case http.StatusOK:
		return decodeItemOwner(res.Body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return 0, port.ErrItemLookupForbidden
	case http.StatusNotFound:
		return 0, fmt.Errorf("%w: %d", port.ErrItemNotFound, itemID)
	default:
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		c.logger.Error("item owner unexpected status",
			slog.Int("status", res.StatusCode),
			slog.String("url", req.URL.String()),
			slog.String("body", strings.TrimSpace(string(body))))
		return 0, fmt.Errorf("unexpected item response %d", res.StatusCode)
	}
}

func decodeItemOwner(body io.Reader) (int64, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode item: %w", err)
	}
	owner, ok := normalization.FirstInt64(normalization.MapFromPayload(payload), "userId", "ownerId")
	if !ok {
		return 0, port.ErrItemHasNoOwner
	}
	return owner, nil
}

var _ port.ItemOwnerLookup = (*ItemOwnerHTTPClient)(nil)
