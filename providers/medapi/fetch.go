package medapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"med-watch/config"
	"med-watch/models"
	"med-watch/providers"

	"go.uber.org/zap"
)

const userAgent = "med-watch/1.0"

// userAgentTransport fügt jeder Anfrage einen User-Agent-Header hinzu.
type userAgentTransport struct {
	Transport http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return t.Transport.RoundTrip(req)
}

// Fetcher implementiert das Source-Interface für das Medikamenten-Backend.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger

	client *http.Client
}

// NewFetcher erstellt einen neuen Backend-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		Config: cfg,
		Logger: logger,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &userAgentTransport{Transport: http.DefaultTransport},
		},
	}
}

// Name gibt den Namen der Quelle zurück.
func (f *Fetcher) Name() string {
	return "medapi"
}

// FetchMedications ruft GET {SERVER_URL}/api/medications auf.
// Jeder Fehler wird in providers.ErrFetchFailed gekapselt.
func (f *Fetcher) FetchMedications(ctx context.Context) ([]models.MedicationRecord, error) {
	url := f.Config.MedicationsURL()
	log := f.Logger.With(zap.String("url", url))
	log.Debug("Rufe Medikamenten-API auf.")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", providers.ErrFetchFailed, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.Warn("Medikamenten-API nicht erreichbar", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", providers.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn("Medikamenten-API antwortete mit Fehlerstatus",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, fmt.Errorf("%w: status %d", providers.ErrFetchFailed, resp.StatusCode)
	}

	var records []models.MedicationRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		log.Warn("Antwort der Medikamenten-API nicht lesbar", zap.Error(err))
		return nil, fmt.Errorf("%w: decode: %v", providers.ErrFetchFailed, err)
	}
	if records == nil {
		records = []models.MedicationRecord{}
	}

	log.Info("Medikamente geladen", zap.Int("count", len(records)))
	return records, nil
}
