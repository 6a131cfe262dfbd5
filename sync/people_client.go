// ABOUTME: Google People API client for contacts import
// ABOUTME: Wraps the People service behind a small paging interface
package sync

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
)

// personFields are the People API fields the importer reads.
const personFields = "names,emailAddresses,organizations,urls"

// PeopleSource pages through the user's Google contacts.
type PeopleSource interface {
	ListConnections(ctx context.Context, pageToken string) (*people.ListConnectionsResponse, error)
}

type peopleClient struct {
	service *people.Service
}

// NewPeopleClient creates an authenticated People API source.
func NewPeopleClient(ctx context.Context, config *oauth2.Config, token *oauth2.Token) (PeopleSource, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	service, err := people.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}
	return &peopleClient{service: service}, nil
}

func (p *peopleClient) ListConnections(ctx context.Context, pageToken string) (*people.ListConnectionsResponse, error) {
	call := p.service.People.Connections.List("people/me").
		PageSize(1000).
		PersonFields(personFields).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}
