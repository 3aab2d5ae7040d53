package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/munidigital/arbolado-api/services/api/config"
	"github.com/munidigital/arbolado-api/services/api/db"
	"github.com/munidigital/arbolado-api/services/api/importer"
)

// stubStore implements Store in memory for handler tests.
type stubStore struct {
	records []importer.Record
	deleted bool
	swept   int
}

func (s *stubStore) DeleteAllTrees(ctx context.Context) error {
	s.records = nil
	s.deleted = true
	return nil
}

func (s *stubStore) InsertTrees(ctx context.Context, records []importer.Record) (int, error) {
	s.records = append(s.records, records...)
	return len(records), nil
}

func (s *stubStore) InTransaction(ctx context.Context, fn func(importer.TreeStore) error) error {
	return fn(s)
}

func (s *stubStore) ListTrees(ctx context.Context) ([]db.TreeRow, error) {
	rows := make([]db.TreeRow, len(s.records))
	for i, rec := range s.records {
		rows[i] = db.TreeRow{
			ID:           int64(i + 1),
			Species:      rec.Species,
			StreetName:   rec.StreetName,
			StreetNumber: rec.StreetNumber,
		}
	}
	return rows, nil
}

func (s *stubStore) CreateTree(ctx context.Context, in db.NewTree) (int64, error) {
	s.records = append(s.records, importer.Record{
		Species:      importer.CleanText(in.Species),
		StreetName:   importer.CleanText(in.StreetName),
		StreetNumber: importer.DigitsOnly(in.StreetNumber),
	})
	return int64(len(s.records)), nil
}

func (s *stubStore) SweepExactDuplicates(ctx context.Context) (int, error) {
	return s.swept, nil
}

func newTestServer(store Store) *Server {
	return New(config.Config{Port: 0}, store)
}

func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func multipartUpload(t *testing.T, workbook []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "arboles.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

var sampleSheet = [][]any{
	{"Especie", "Calle", "Altura", "Estado", "Vereda"},
	{"Roble", "Calle San Martín", "742", "Sano", "Norte"},
	{"Roble", "Calle San Martin", "742", "sano", "norte"},
	{"", "Calle X", "10", "Sano", "Sur"},
}

func TestImportPreview(t *testing.T) {
	srv := newTestServer(&stubStore{})
	body, contentType := multipartUpload(t, workbookBytes(t, sampleSheet), nil)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/trees/import/preview", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, nethttp.StatusOK, w.Code)
	resp := decodeJSON(t, w)

	assert.Len(t, resp["rows"], 2)
	assert.Len(t, resp["invalids"], 1)
	assert.Len(t, resp["suggestions"], 1)
	assert.Empty(t, resp["duplicates"], "spelling variants stay distinct keys before unification")

	invalid := resp["invalids"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(4), invalid["row"])
}

func TestImportPreviewRequiresFile(t *testing.T) {
	srv := newTestServer(&stubStore{})

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/trees/import/preview", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
	assert.Contains(t, decodeJSON(t, w), "message")
}

func TestImportExcelMode(t *testing.T) {
	store := &stubStore{records: []importer.Record{{Species: "Viejo", StreetName: "X", StreetNumber: "1"}}}
	srv := newTestServer(store)
	body, contentType := multipartUpload(t, workbookBytes(t, sampleSheet), map[string]string{"replaceAll": "1"})

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/trees/import", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, nethttp.StatusOK, w.Code)
	resp := decodeJSON(t, w)

	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "excel", resp["mode"])
	assert.Equal(t, float64(2), resp["created"])
	assert.Equal(t, float64(1), resp["skipped"])
	assert.Equal(t, float64(0), resp["duplicateSkipped"])
	assert.True(t, store.deleted, "replaceAll purges existing rows first")
	assert.Len(t, store.records, 2)
}

func TestImportJSONMode(t *testing.T) {
	store := &stubStore{}
	srv := newTestServer(store)

	payload := `{"rows":[
		{"species":"Roble","streetName":"Av Siempreviva","streetNumber":"742"},
		{"species":"roble","streetName":"av siempreviva","streetNumber":"742"},
		{"species":"Tilo","streetName":"Mitre","streetNumber":"10"}
	]}`
	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/trees/import", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, nethttp.StatusOK, w.Code)
	resp := decodeJSON(t, w)

	assert.Equal(t, "json", resp["mode"])
	assert.Equal(t, float64(3), resp["received"])
	assert.Equal(t, float64(1), resp["deduped"])
	assert.Equal(t, float64(2), resp["created"])
	assert.False(t, store.deleted, "json mode never deletes existing data")
}

func TestImportRejectsBodyWithoutRows(t *testing.T) {
	srv := newTestServer(&stubStore{})

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/trees/import", strings.NewReader(`{"other":1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
}

func TestDeleteAllTrees(t *testing.T) {
	store := &stubStore{records: []importer.Record{{Species: "Roble", StreetName: "X", StreetNumber: "1"}}}
	srv := newTestServer(store)

	req := httptest.NewRequest(nethttp.MethodDelete, "/api/v1/trees", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Equal(t, true, decodeJSON(t, w)["ok"])
	assert.True(t, store.deleted)
}

func TestDedupeSweep(t *testing.T) {
	srv := newTestServer(&stubStore{swept: 7})

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/trees/dedupe", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, nethttp.StatusOK, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, float64(7), resp["deleted"])
}

func TestCreateTreeValidation(t *testing.T) {
	srv := newTestServer(&stubStore{})

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/trees",
		strings.NewReader(`{"species":"Roble","streetName":"Mitre","streetNumber":"s/n"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, nethttp.StatusBadRequest, w.Code)
}

func TestCreateTree(t *testing.T) {
	store := &stubStore{}
	srv := newTestServer(store)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/v1/trees",
		strings.NewReader(`{"species":"Roble","streetName":"Mitre","streetNumber":"1200","status":"desconocido"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, nethttp.StatusCreated, w.Code)
	assert.Len(t, store.records, 1)
}

func TestListTrees(t *testing.T) {
	store := &stubStore{records: []importer.Record{
		{Species: "Roble", StreetName: "Mitre", StreetNumber: "10"},
		{Species: "Tilo", StreetName: "Mitre", StreetNumber: "12"},
	}}
	srv := newTestServer(store)

	req := httptest.NewRequest(nethttp.MethodGet, "/api/v1/trees", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, nethttp.StatusOK, w.Code)
	resp := decodeJSON(t, w)
	assert.Len(t, resp["data"], 2)
}
