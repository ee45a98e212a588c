package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// mockGateway fabricates deterministic successful responses without any
// network call. It is a development aid only.
type mockGateway struct{}

func (mockGateway) CreateCustomer(_ context.Context, p CustomerParams) (string, error) {
	return fmt.Sprintf("cus_mock_%d", p.UserID), nil
}

func (mockGateway) CreateCheckoutSession(_ context.Context, p CheckoutParams) (string, error) {
	sep := "?"
	if strings.Contains(p.SuccessURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%ssession_id=mock_session_%d", p.SuccessURL, sep, p.UserID), nil
}

func (mockGateway) CreatePortalSession(_ context.Context, _ string, returnURL string) (string, error) {
	return returnURL, nil
}

func (mockGateway) ConstructEvent([]byte, string) (Event, error) {
	return Event{}, errors.New("billing: mock gateway does not process webhooks")
}
