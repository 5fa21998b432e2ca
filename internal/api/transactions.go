package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"finclient/internal/core"
)

// ListTransactions returns every transaction visible to the user.
//
// The backend may answer with a paginated page ({"content": [...]}) inside
// the envelope, with a bare array, or with an un-enveloped page. Any other
// shape yields an empty slice rather than an error.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	resp, err := c.send(ctx, http.MethodGet, "/transactions", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeTransactionList(resp.body), nil
}

func decodeTransactionList(body []byte) []core.Transaction {
	var outer struct {
		Data    json.RawMessage `json:"data"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(body, &outer); err != nil {
		return []core.Transaction{}
	}
	if isJSONValue(outer.Data) {
		return transactionsFrom(outer.Data)
	}
	if isJSONValue(outer.Content) {
		return transactionsFrom(body)
	}
	return []core.Transaction{}
}

func transactionsFrom(raw json.RawMessage) []core.Transaction {
	raw = bytes.TrimSpace(raw)
	switch raw[0] {
	case '{':
		var page struct {
			Content json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(raw, &page); err == nil && isJSONArray(page.Content) {
			return decodeArray(page.Content)
		}
	case '[':
		return decodeArray(raw)
	}
	return []core.Transaction{}
}

func decodeArray(raw json.RawMessage) []core.Transaction {
	var items []core.Transaction
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []core.Transaction{}
	}
	return items
}

func isJSONValue(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func (c *Client) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return call[core.Transaction](ctx, c, http.MethodGet, resourcePath("transactions", id), nil, nil)
}

func (c *Client) CreateTransaction(ctx context.Context, req core.CreateTransactionRequest) (core.Transaction, error) {
	return call[core.Transaction](ctx, c, http.MethodPost, "/transactions", nil, req)
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (core.Transaction, error) {
	return call[core.Transaction](ctx, c, http.MethodPut, resourcePath("transactions", id), nil, patch)
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	return c.remove(ctx, resourcePath("transactions", id))
}
