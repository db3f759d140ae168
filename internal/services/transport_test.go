package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/desertthunder/musicman/internal/services"
	"github.com/desertthunder/musicman/internal/shared"
	tu "github.com/desertthunder/musicman/internal/testing"
)

func TestSpotifyClientTransport(t *testing.T) {
	t.Run("Transport Failure", func(t *testing.T) {
		httpClient := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		cfg := shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret", APIURL: "http://spotify.invalid"}
		client, err := services.NewSpotifyClient(cfg, httpClient)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err = client.CurrentUser(context.Background(), "tok")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Body Read Failure", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		httpClient := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}
		cfg := shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret", APIURL: "http://spotify.invalid"}
		client, err := services.NewSpotifyClient(cfg, httpClient)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err = client.Album(context.Background(), "tok", "b1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
