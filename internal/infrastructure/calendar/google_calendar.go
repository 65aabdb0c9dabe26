// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package calendar provides the calendar collaborator that writes action
// item reminders to a user's Google Calendar.
package calendar

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-meeting-actions-service/internal/logging"
)

const (
	// TokenURL is Google's OAuth2 token endpoint
	TokenURL = "https://oauth2.googleapis.com/token"
	// AuthURL is Google's OAuth2 consent endpoint
	AuthURL = "https://accounts.google.com/o/oauth2/auth"
	// PrimaryCalendarID is the user's default calendar
	PrimaryCalendarID = "primary"
	// DefaultClientTimeout is the default HTTP client timeout for calendar requests
	DefaultClientTimeout = 30 * time.Second
)

// Reminder lead times set on every action item event, in minutes.
const (
	EmailReminderMinutes = 24 * 60
	PopupReminderMinutes = 30
)

func eventReminders() *gcal.EventReminders {
	return &gcal.EventReminders{
		UseDefault: false,
		Overrides: []*gcal.EventReminder{
			{Method: "email", Minutes: EmailReminderMinutes},
			{Method: "popup", Minutes: PopupReminderMinutes},
		},
		// UseDefault is omitted from the request when false unless forced.
		ForceSendFields: []string{"UseDefault"},
	}
}

// Config holds the configuration for the Google Calendar client
type Config struct {
	ClientID     string
	ClientSecret string
	// Optional: override the token URL for testing
	TokenURL string
	// Optional: override the Calendar API endpoint for testing
	Endpoint string
	// Optional: override timeout for HTTP requests
	Timeout time.Duration
}

// GoogleCalendar creates events with a per-user refresh token.
type GoogleCalendar struct {
	httpClient  *http.Client
	config      Config
	oauthConfig *oauth2.Config
}

var _ domain.CalendarService = (*GoogleCalendar)(nil)

// NewGoogleCalendar creates a new Google Calendar client
func NewGoogleCalendar(config Config) *GoogleCalendar {
	if config.TokenURL == "" {
		config.TokenURL = TokenURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultClientTimeout
	}

	return &GoogleCalendar{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		config: config,
		oauthConfig: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  AuthURL,
				TokenURL: config.TokenURL,
			},
			Scopes: []string{gcal.CalendarEventsScope},
		},
	}
}

// getAuthenticatedClient returns an HTTP client that refreshes the user's access token
func (c *GoogleCalendar) getAuthenticatedClient(ctx context.Context, refreshToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	ts := c.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return oauth2.NewClient(ctx, ts)
}

// CreateEvent inserts the event into the user's primary calendar and returns its ID.
func (c *GoogleCalendar) CreateEvent(ctx context.Context, credential *models.CalendarCredential, event domain.CalendarEvent) (string, error) {
	if credential == nil || credential.RefreshToken == "" {
		return "", domain.NewAuthError("missing calendar credential", domain.ErrMissingCredential)
	}

	opts := []option.ClientOption{option.WithHTTPClient(c.getAuthenticatedClient(ctx, credential.RefreshToken))}
	if c.config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.config.Endpoint))
	}
	service, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return "", domain.NewPermanentError("failed to create calendar service", err)
	}

	created, err := service.Events.Insert(PrimaryCalendarID, &gcal.Event{
		Summary:     event.Title,
		Description: event.Description,
		Start:       &gcal.EventDateTime{DateTime: event.Start.UTC().Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: event.End.UTC().Format(time.RFC3339)},
		Reminders:   eventReminders(),
	}).Context(ctx).Do()
	if err != nil {
		slog.WarnContext(ctx, "calendar event insert failed", logging.ErrKey, err)
		return "", classifyError(err)
	}

	slog.DebugContext(ctx, "created calendar event", "event_id", created.Id)
	return created.Id, nil
}

// classifyError maps OAuth and Calendar API failures onto the pipeline error taxonomy.
func classifyError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= http.StatusInternalServerError {
			return domain.NewTransientError("calendar token endpoint unavailable", err)
		}
		return domain.NewAuthError("calendar credential rejected", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return domain.NewAuthError("calendar credential rejected", err)
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
			return domain.NewTransientError("calendar unavailable", err)
		default:
			return domain.NewPermanentError("calendar rejected event", err)
		}
	}

	return domain.NewTransientError("calendar request failed", err)
}
