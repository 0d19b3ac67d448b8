// Package ingestion pulls hazard data from the public feeds, normalizes it
// into models.Disaster and persists new records.
package ingestion

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

// Feed is one upstream hazard source.
type Feed interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Disaster, error)
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	return get(ctx, client, url, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(v)
	})
}

func getXML(ctx context.Context, client *http.Client, url string, v any) error {
	return get(ctx, client, url, func(r io.Reader) error {
		return xml.NewDecoder(r).Decode(v)
	})
}

func get(ctx context.Context, client *http.Client, url string, decode func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "error creating request")
	}
	req.Header.Set("User-Agent", "disaster-v2v/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return eris.Wrap(err, "error while doing request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	if err := decode(resp.Body); err != nil {
		return eris.Wrap(err, "error decoding resp.Body")
	}
	return nil
}
