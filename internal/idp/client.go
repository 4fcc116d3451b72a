// Package idp talks to the identity provider's admin API.
package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eventflow/platform/internal/domain"
)

const (
	defaultTimeout = 5 * time.Second
	adminRealm     = "master"
	adminClientID  = "admin-cli"
	maxBodyBytes   = 1 << 20
)

var ErrAdminAuth = errors.New("identity provider admin login failed")

// Client looks up user accounts with admin credentials obtained through a
// password grant on the master realm.
type Client struct {
	baseURL  string
	realm    string
	username string
	password string
	http     *http.Client
}

// NewClient returns a Client for the realm hosted at baseURL. A nil
// httpClient gets a default one with a 5s timeout.
func NewClient(baseURL, realm, username, password string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		realm:    realm,
		username: username,
		password: password,
		http:     httpClient,
	}
}

type adminUser struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LookupUser finds the account for subject. Subjects of the form
// "f:<provider>:<username>" are looked up by their last segment.
func (c *Client) LookupUser(ctx context.Context, subject string) (domain.User, error) {
	token, err := c.adminToken(ctx)
	if err != nil {
		return domain.User{}, err
	}

	endpoint := fmt.Sprintf("%s/admin/realms/%s/users?%s",
		c.baseURL, url.PathEscape(c.realm), url.Values{"username": {lookupName(subject)}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.User{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	var users []adminUser
	if err := c.do(req, &users); err != nil {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if len(users) == 0 {
		return domain.User{}, domain.ErrUserNotFound
	}

	u := users[0]
	return domain.User{
		Subject: subject,
		Email:   u.Email,
		Name:    strings.TrimSpace(u.FirstName + " " + u.LastName),
	}, nil
}

func (c *Client) adminToken(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {adminClientID},
		"username":   {c.username},
		"password":   {c.password},
	}
	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, adminRealm)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(req, &body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAdminAuth, err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAdminAuth)
	}
	return body.AccessToken, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out)
}

func lookupName(subject string) string {
	if i := strings.LastIndex(subject, ":"); i >= 0 {
		return subject[i+1:]
	}
	return subject
}
