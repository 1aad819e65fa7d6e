package trainlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/readyrun/readyrun/internal/server"
	"github.com/readyrun/readyrun/pkg/plugin"
	"github.com/readyrun/readyrun/pkg/training"
)

// csvHeader is the import/export column order.
var csvHeader = []string{"Date", "RHR", "Distance", "RPE", "Type"}

// entryRequest is the JSON submission shape.
type entryRequest struct {
	Date       string  `json:"date"`
	RestingHR  int     `json:"resting_hr"`
	DistanceKm float64 `json:"distance_km"`
	RPE        float64 `json:"rpe"`
	Session    string  `json:"session"`
}

// handleAppend serves POST /api/v1/trainlog/entries. Submitting a date that
// already has an entry replaces it.
func (m *Module) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.BadRequest(w, "invalid JSON body: "+err.Error(), r.URL.Path)
		return
	}

	entry, err := m.validate(req)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	if err := m.store.Append(r.Context(), entry); err != nil {
		m.logger.Error("append entry failed", zap.String("day", entry.Day()), zap.Error(err))
		server.InternalError(w, "could not store entry", r.URL.Path)
		return
	}
	m.publishAppended(r, entry)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(entry)
}

// handleList serves GET /api/v1/trainlog/entries, optionally bounded by
// ?from=YYYY-MM-DD&to=YYYY-MM-DD.
func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	var (
		entries []training.LogEntry
		err     error
	)

	fromRaw, toRaw := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if fromRaw != "" || toRaw != "" {
		from, to, rangeErr := parseRange(fromRaw, toRaw)
		if rangeErr != nil {
			server.BadRequest(w, rangeErr.Error(), r.URL.Path)
			return
		}
		entries, err = m.store.ListRange(r.Context(), from, to)
	} else {
		entries, err = m.store.List(r.Context())
	}
	if err != nil {
		m.logger.Error("list entries failed", zap.Error(err))
		server.InternalError(w, "could not read training log", r.URL.Path)
		return
	}

	if entries == nil {
		entries = []training.LogEntry{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleExport serves GET /api/v1/trainlog/entries/export as CSV in the
// same column order the importer accepts.
func (m *Module) handleExport(w http.ResponseWriter, r *http.Request) {
	entries, err := m.store.List(r.Context())
	if err != nil {
		m.logger.Error("export failed", zap.Error(err))
		server.InternalError(w, "could not read training log", r.URL.Path)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="training_log.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeader)
	for _, e := range entries {
		_ = cw.Write([]string{
			e.Day(),
			strconv.Itoa(e.RestingHR),
			strconv.FormatFloat(e.DistanceKm, 'f', -1, 64),
			strconv.FormatFloat(e.PerceivedExertion, 'f', -1, 64),
			string(e.Session),
		})
	}
	cw.Flush()
}

// handleImport serves POST /api/v1/trainlog/entries/import. The body is CSV
// with the export header. The import is all-or-nothing: any malformed row
// fails the whole request with per-row errors, and no row is ever coerced
// to zero to make it fit.
func (m *Module) handleImport(w http.ResponseWriter, r *http.Request) {
	reader := csv.NewReader(io.LimitReader(r.Body, 1<<20))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		server.BadRequest(w, "empty or unreadable CSV body", r.URL.Path)
		return
	}
	if !headerMatches(header) {
		server.BadRequest(w, fmt.Sprintf("CSV header must be %v", csvHeader), r.URL.Path)
		return
	}

	var (
		entries   []training.LogEntry
		rowErrors []string
	)
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", row, err))
			continue
		}
		entry, err := m.parseCSVRow(record)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", row, err))
			continue
		}
		entries = append(entries, entry)
	}

	if len(rowErrors) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"imported": 0,
			"errors":   rowErrors,
		})
		return
	}
	if len(entries) == 0 {
		server.BadRequest(w, "CSV contains no data rows", r.URL.Path)
		return
	}

	if err := m.store.AppendBatch(r.Context(), entries); err != nil {
		m.logger.Error("import failed", zap.Error(err))
		server.InternalError(w, "could not store imported entries", r.URL.Path)
		return
	}
	for _, e := range entries {
		m.publishAppended(r, e)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"imported": len(entries)})
}

func (m *Module) parseCSVRow(record []string) (training.LogEntry, error) {
	if len(record) != len(csvHeader) {
		return training.LogEntry{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(record))
	}
	rhr, err := strconv.Atoi(record[1])
	if err != nil {
		return training.LogEntry{}, fmt.Errorf("RHR %q is not an integer", record[1])
	}
	distance, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return training.LogEntry{}, fmt.Errorf("Distance %q is not a number", record[2])
	}
	rpe, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return training.LogEntry{}, fmt.Errorf("RPE %q is not a number", record[3])
	}
	return m.validate(entryRequest{
		Date:       record[0],
		RestingHR:  rhr,
		DistanceKm: distance,
		RPE:        rpe,
		Session:    record[4],
	})
}

// validate checks a submission against the configured bounds and returns
// the normalized entry.
func (m *Module) validate(req entryRequest) (training.LogEntry, error) {
	date, err := time.ParseInLocation(training.DateLayout, req.Date, time.UTC)
	if err != nil {
		return training.LogEntry{}, fmt.Errorf("date %q must be YYYY-MM-DD", req.Date)
	}
	if req.RestingHR < m.cfg.MinRestingHR || req.RestingHR > m.cfg.MaxRestingHR {
		return training.LogEntry{}, fmt.Errorf("resting_hr %d must be between %d and %d",
			req.RestingHR, m.cfg.MinRestingHR, m.cfg.MaxRestingHR)
	}
	if req.DistanceKm < 0 || req.DistanceKm > m.cfg.MaxDistanceKm {
		return training.LogEntry{}, fmt.Errorf("distance_km %.2f must be between 0 and %.1f",
			req.DistanceKm, m.cfg.MaxDistanceKm)
	}
	if req.RPE < minRPE || req.RPE > maxRPE {
		return training.LogEntry{}, fmt.Errorf("rpe %.1f must be between %d and %d", req.RPE, minRPE, maxRPE)
	}
	session, err := training.ParseSessionType(req.Session)
	if err != nil {
		return training.LogEntry{}, err
	}
	return training.LogEntry{
		Date:              date,
		RestingHR:         req.RestingHR,
		DistanceKm:        req.DistanceKm,
		PerceivedExertion: req.RPE,
		Session:           session,
	}, nil
}

func (m *Module) publishAppended(r *http.Request, e training.LogEntry) {
	m.bus.PublishAsync(r.Context(), plugin.Event{
		Topic:  TopicEntryAppended,
		Source: ModuleName,
		Payload: EntryAppendedPayload{
			Day:        e.Day(),
			RestingHR:  e.RestingHR,
			DistanceKm: e.DistanceKm,
			RPE:        e.PerceivedExertion,
			Session:    string(e.Session),
		},
	})
}

func parseRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2999, 12, 31, 0, 0, 0, 0, time.UTC)

	var err error
	if fromRaw != "" {
		if from, err = time.ParseInLocation(training.DateLayout, fromRaw, time.UTC); err != nil {
			return from, to, fmt.Errorf("from %q must be YYYY-MM-DD", fromRaw)
		}
	}
	if toRaw != "" {
		if to, err = time.ParseInLocation(training.DateLayout, toRaw, time.UTC); err != nil {
			return from, to, fmt.Errorf("to %q must be YYYY-MM-DD", toRaw)
		}
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("to %s is before from %s", toRaw, fromRaw)
	}
	return from, to, nil
}

func headerMatches(header []string) bool {
	if len(header) != len(csvHeader) {
		return false
	}
	for i, h := range header {
		if h != csvHeader[i] {
			return false
		}
	}
	return true
}
