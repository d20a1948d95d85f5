package service

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

	"jirabridge/internal/config"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"
)

type AtlassianServiceConfig struct {
	AuthorizeURL           string
	TokenURL               string
	RevokeURL              string
	AccessibleResourcesURL string
	APIBaseURL             string
	Timeout                time.Duration
}

// AccessibleResource is one site reachable with a granted token. The ID is the
// stable cloud id used for all API calls.
type AccessibleResource struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Scopes    []string `json:"scopes"`
	AvatarURL string   `json:"avatarUrl"`
}

type AtlassianUser struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

type AtlassianProject struct {
	ID             string `json:"id"`
	Key            string `json:"key"`
	Name           string `json:"name"`
	ProjectTypeKey string `json:"projectTypeKey"`
}

// AtlassianService talks to the Atlassian authorization server and the
// cloud-id scoped Jira API. Every call carries the configured timeout and
// transient upstream failures on reads are retried with backoff.
type AtlassianService struct {
	Config     AtlassianServiceConfig
	httpClient *http.Client
}

func NewAtlassianService(cfg AtlassianServiceConfig) *AtlassianService {
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = config.AuthorizeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = config.TokenURL
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = config.RevokeURL
	}
	if cfg.AccessibleResourcesURL == "" {
		cfg.AccessibleResourcesURL = config.AccessibleResourcesURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = config.APIBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &AtlassianService{
		Config: cfg,
	}
}

func (as *AtlassianService) Init() error {
	as.httpClient = &http.Client{
		Timeout: as.Config.Timeout,
	}
	return nil
}

func (as *AtlassianService) OAuthConfig(clientID string, clientSecret string, redirectURI string) oauth2.Config {
	return oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       config.RequestedScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  as.Config.AuthorizeURL,
			TokenURL: as.Config.TokenURL,
		},
	}
}

// AuthCodeURL builds the provider authorization URL. The audience parameter is
// required by Atlassian for the token to be usable against api.atlassian.com.
func (as *AtlassianService) AuthCodeURL(oauthConfig oauth2.Config, state string, verifier string) string {
	return oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("audience", "api.atlassian.com"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

func (as *AtlassianService) Exchange(ctx context.Context, oauthConfig oauth2.Config, code string, verifier string) (*oauth2.Token, error) {
	token, err := oauthConfig.Exchange(as.callContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, as.translateTokenError(err, ErrTokenExchangeFailed)
	}
	return token, nil
}

// Refresh exchanges a refresh token for a new token pair. A dead refresh token
// surfaces as ErrReauthorizationRequired; the provider may or may not rotate
// the refresh token, callers must keep the old one when none is returned.
func (as *AtlassianService) Refresh(ctx context.Context, oauthConfig oauth2.Config, refreshToken string) (*oauth2.Token, error) {
	source := oauthConfig.TokenSource(as.callContext(ctx), &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.ErrorCode == "invalid_grant" || retrieveErr.Response.StatusCode == http.StatusUnauthorized || retrieveErr.Response.StatusCode == http.StatusForbidden {
				return nil, fmt.Errorf("%w: %s", ErrReauthorizationRequired, retrieveErr.ErrorCode)
			}
		}
		return nil, as.translateTokenError(err, ErrTokenExchangeFailed)
	}

	return token, nil
}

// TokenScopes reads the scopes actually granted from a token response, which
// may be narrower than the requested set.
func (as *AtlassianService) TokenScopes(token *oauth2.Token) []string {
	scope, ok := token.Extra("scope").(string)
	if !ok || strings.TrimSpace(scope) == "" {
		return []string{}
	}
	return strings.Fields(scope)
}

func (as *AtlassianService) AccessibleResources(ctx context.Context, accessToken string) ([]AccessibleResource, error) {
	var resources []AccessibleResource
	err := as.getJSON(ctx, as.Config.AccessibleResourcesURL, accessToken, &resources)
	if err != nil {
		return nil, err
	}
	return resources, nil
}

func (as *AtlassianService) Myself(ctx context.Context, accessToken string, cloudID string) (*AtlassianUser, error) {
	var user AtlassianUser
	err := as.getJSON(ctx, fmt.Sprintf("%s/%s/rest/api/3/myself", as.Config.APIBaseURL, cloudID), accessToken, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (as *AtlassianService) Projects(ctx context.Context, accessToken string, cloudID string) ([]AtlassianProject, error) {
	var projects []AtlassianProject
	err := as.getJSON(ctx, fmt.Sprintf("%s/%s/rest/api/3/project", as.Config.APIBaseURL, cloudID), accessToken, &projects)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// Revoke invalidates a token at the provider. Best effort, callers decide
// whether a failure matters.
func (as *AtlassianService) Revoke(ctx context.Context, clientID string, clientSecret string, token string) error {
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, as.Config.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	res, err := as.httpClient.Do(req)
	if err != nil {
		return as.translateTransportError(err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("token revocation returned HTTP %d", res.StatusCode)
	}

	return nil
}

func (as *AtlassianService) callContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, as.httpClient)
}

// getJSON performs an authenticated GET and decodes the body. Server errors
// are retried a bounded number of times, everything else fails immediately.
func (as *AtlassianService) getJSON(ctx context.Context, requestURL string, accessToken string, out any) error {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		req.Header.Set("Accept", "application/json")

		res, err := as.httpClient.Do(req)
		if err != nil {
			return nil, backoff.Permanent(as.translateTransportError(err))
		}
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		switch {
		case res.StatusCode >= 200 && res.StatusCode < 300:
			return body, nil
		case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
			return nil, backoff.Permanent(fmt.Errorf("%w: HTTP %d", ErrReauthorizationRequired, res.StatusCode))
		case res.StatusCode >= 500:
			return nil, fmt.Errorf("atlassian api returned HTTP %d", res.StatusCode)
		default:
			return nil, backoff.Permanent(fmt.Errorf("atlassian api returned HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body))))
		}
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, out)
}

func (as *AtlassianService) translateTokenError(err error, fallback error) error {
	if transport := as.translateTransportError(err); errors.Is(transport, ErrUpstreamTimeout) {
		return transport
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		description := retrieveErr.ErrorDescription
		if description == "" {
			description = strings.TrimSpace(string(retrieveErr.Body))
		}
		return fmt.Errorf("%w: %s: %s", fallback, retrieveErr.ErrorCode, description)
	}

	return fmt.Errorf("%w: %v", fallback, err)
}

func (as *AtlassianService) translateTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}

	return err
}
