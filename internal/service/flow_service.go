package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"jirabridge/internal/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

type FlowServiceConfig struct {
	RedirectURI string
	StateExpiry time.Duration
}

// flowState is one pending authorization flow, keyed by its anti-forgery
// state token. It is consumed exactly once by the callback and never reused.
type flowState struct {
	verifier    string
	redirectURI string
	expiresAt   time.Time
}

type StartResult struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// FlowService coordinates the authorization-code flow: it builds the redirect,
// validates and consumes the callback state, exchanges the code and upserts
// one connection per tenant the grant can see.
type FlowService struct {
	Config      FlowServiceConfig
	credentials *CredentialService
	atlassian   *AtlassianService

	mutex sync.Mutex
	flows map[string]flowState
}

func NewFlowService(config FlowServiceConfig, credentials *CredentialService, atlassian *AtlassianService) *FlowService {
	if config.StateExpiry == 0 {
		config.StateExpiry = 10 * time.Minute
	}

	return &FlowService{
		Config:      config,
		credentials: credentials,
		atlassian:   atlassian,
		flows:       make(map[string]flowState),
	}
}

// Start begins a new authorization flow. Fails with ErrNotConfigured when no
// app credentials are stored. Each call creates an independent flow record so
// concurrent users or tabs cannot clobber each other.
func (fs *FlowService) Start(redirectURI string) (*StartResult, error) {
	clientID, clientSecret, err := fs.credentials.GetAppCredential()
	if err != nil {
		return nil, err
	}

	if redirectURI == "" {
		redirectURI = fs.Config.RedirectURI
	}
	if redirectURI == "" {
		return nil, fmt.Errorf("%w: redirect uri is required", ErrValidation)
	}

	state, err := generateState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	fs.mutex.Lock()
	fs.pruneExpired()
	fs.flows[state] = flowState{
		verifier:    verifier,
		redirectURI: redirectURI,
		expiresAt:   time.Now().Add(fs.Config.StateExpiry),
	}
	fs.mutex.Unlock()

	oauthConfig := fs.atlassian.OAuthConfig(clientID, clientSecret, redirectURI)
	authorizationURL := fs.atlassian.AuthCodeURL(oauthConfig, state, verifier)

	log.Debug().Str("redirectUri", redirectURI).Msg("Authorization flow started")

	return &StartResult{
		AuthorizationURL: authorizationURL,
		State:            state,
	}, nil
}

// HandleCallback validates and consumes the state, exchanges the code and
// stores one connection per accessible tenant. The state is deleted before
// the network call so a retried callback cannot replay it.
func (fs *FlowService) HandleCallback(ctx context.Context, state string, code string) ([]model.Connection, error) {
	fs.mutex.Lock()
	flow, exists := fs.flows[state]
	delete(fs.flows, state)
	fs.mutex.Unlock()

	if !exists || time.Now().After(flow.expiresAt) {
		return nil, ErrInvalidState
	}

	clientID, clientSecret, err := fs.credentials.GetAppCredential()
	if err != nil {
		return nil, err
	}

	oauthConfig := fs.atlassian.OAuthConfig(clientID, clientSecret, flow.redirectURI)

	token, err := fs.atlassian.Exchange(ctx, oauthConfig, code, flow.verifier)
	if err != nil {
		return nil, err
	}

	resources, err := fs.atlassian.AccessibleResources(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: listing accessible resources: %v", ErrTokenExchangeFailed, err)
	}
	if len(resources) == 0 {
		return nil, fmt.Errorf("%w: grant exposes no accessible sites", ErrTokenExchangeFailed)
	}

	tokenScopes := fs.atlassian.TokenScopes(token)

	connections := make([]model.Connection, 0, len(resources))

	for _, resource := range resources {
		scopes := resource.Scopes
		if len(scopes) == 0 {
			scopes = tokenScopes
		}

		connection, err := fs.credentials.UpsertConnection(ConnectionUpsert{
			TenantID:       resource.ID,
			SiteName:       resource.Name,
			SiteURL:        resource.URL,
			AvatarURL:      resource.AvatarURL,
			AccessToken:    token.AccessToken,
			RefreshToken:   token.RefreshToken,
			TokenExpiresAt: token.Expiry,
			GrantedScopes:  scopes,
		})
		if err != nil {
			return nil, err
		}

		log.Info().Str("tenantId", resource.ID).Str("siteName", resource.Name).Msg("Connected site")
		connections = append(connections, *connection)
	}

	return connections, nil
}

// pruneExpired drops dead flow records. Caller holds the mutex.
func (fs *FlowService) pruneExpired() {
	now := time.Now()
	for state, flow := range fs.flows {
		if now.After(flow.expiresAt) {
			delete(fs.flows, state)
		}
	}
}

func generateState() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
