package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"profitpulse/domain"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// AuthProvider resolves a bearer token to the signed-in user.
type AuthProvider interface {
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

// PaymentRedirector returns the checkout URL that unlocks paid features.
type PaymentRedirector interface {
	CheckoutURL(ctx context.Context, user domain.User) (string, error)
}

// StaticAuthProvider treats the token as the user's email. Emails in the
// paid list get the subscription flag.
type StaticAuthProvider struct {
	paid map[string]bool
}

func NewStaticAuthProvider(paidEmails []string) *StaticAuthProvider {
	paid := make(map[string]bool, len(paidEmails))
	for _, email := range paidEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			paid[email] = true
		}
	}
	return &StaticAuthProvider{paid: paid}
}

func (a *StaticAuthProvider) Authenticate(_ context.Context, token string) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(token))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, ErrUnauthenticated
	}
	return domain.User{
		ID:                  email,
		Email:               email,
		HasPaidSubscription: a.paid[email],
	}, nil
}

// StaticRedirector appends the user's email to a fixed checkout URL.
type StaticRedirector struct {
	baseURL string
}

func NewStaticRedirector(baseURL string) *StaticRedirector {
	return &StaticRedirector{baseURL: baseURL}
}

func (r *StaticRedirector) CheckoutURL(_ context.Context, user domain.User) (string, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse checkout url: %w", err)
	}
	q := u.Query()
	q.Set("prefilled_email", user.Email)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
