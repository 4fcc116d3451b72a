package messaging

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/eventflow/platform/internal/domain"
)

func TestEncodeSale_WireFields(t *testing.T) {
	t.Parallel()

	body, err := EncodeSale(domain.Sale{
		EventID:      "e-1",
		OrganizerSub: "org",
		BuyerSub:     "buyer",
		Code:         "ABCDEF12",
		CreatedAt:    time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]any{
		"event_id":      "e-1",
		"organizer_sub": "org",
		"buyer_sub":     "buyer",
		"code":          "ABCDEF12",
		"created_at":    "2026-06-01T10:00:00Z",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("field %s: expected %v, got %v", k, v, fields[k])
		}
	}
}

func TestDecodeSale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    domain.Sale
		wantErr bool
	}{
		{
			name: "full message",
			body: `{"event_id":"e-1","organizer_sub":"org","buyer_sub":"b","code":"C0DE0001","created_at":"2026-06-01T10:00:00Z"}`,
			want: domain.Sale{EventID: "e-1", OrganizerSub: "org", BuyerSub: "b", Code: "C0DE0001", CreatedAt: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)},
		},
		{
			name: "missing timestamp",
			body: `{"event_id":"e-1","buyer_sub":"b","code":"C0DE0001"}`,
			want: domain.Sale{EventID: "e-1", BuyerSub: "b", Code: "C0DE0001"},
		},
		{name: "not json", body: `ticket sold`, wantErr: true},
		{name: "wrong type", body: `{"event_id":42}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeSale([]byte(tc.body))
			if tc.wantErr {
				if !errors.Is(err, ErrMalformedMessage) {
					t.Fatalf("expected ErrMalformedMessage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}
