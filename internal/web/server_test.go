package web

import (
	"bytes"
	"encoding/json"
	"go/parser"
	"go/token"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataplay/internal/config"
	"github.com/JonMunkholm/dataplay/internal/core"
	"github.com/JonMunkholm/dataplay/internal/session"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{RequestTimeout: 10 * time.Second},
		Upload:  config.UploadConfig{MaxFileSize: 64 << 10, MaxConcurrent: 2, MaxWaitTime: time.Second},
		Session: config.SessionConfig{TTL: time.Hour, MaxTables: 10},
		Preview: config.PreviewConfig{MaxRows: 100, HeadRows: 3},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	tokens, err := session.NewTokens("test-secret-0123456789", cfg.Session.TTL)
	require.NoError(t, err)
	store := session.NewStore(session.Options{TTL: cfg.Session.TTL, MaxTables: cfg.Session.MaxTables})

	srv := NewServer(core.NewService(cfg, nil), store, tokens)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

// client is a browser-like client that keeps the session cookie.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, ts *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: ts.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(req *http.Request) (*http.Response, []byte) {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, body
}

func (c *client) get(path string, header ...string) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	require.NoError(c.t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return c.do(req)
}

func (c *client) postJSON(path, body string) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) postForm(path string, form url.Values) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) upload(path, filename, content string, fields ...string) (*http.Response, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(c.t, err)
	for i := 0; i+1 < len(fields); i += 2 {
		require.NoError(c.t, mw.WriteField(fields[i], fields[i+1]))
	}
	require.NoError(c.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func decodeBody[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

const (
	ordersCSV    = "id,customer_id,amount\n1,10,5\n2,11,7\n3,12,1\n4,10,9\n"
	customersCSV = "customer_id,name,region\n10,Ann,west\n11,Bo,east\n"
)

func loadFixtures(t *testing.T, c *client) {
	t.Helper()
	resp, body := c.upload("/api/upload", "orders.csv", ordersCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	resp, body = c.upload("/api/upload", "customers.csv", customersCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func TestHealthz(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))
	resp, body := c.get("/healthz")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeBody[map[string]any](t, body)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["import_enabled"])
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestUpload(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))

	resp, body := c.upload("/api/upload", "orders.csv", ordersCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	res := decodeBody[core.LoadResult](t, body)
	assert.Equal(t, "orders", res.Name)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, "csv", res.Source)

	resp, body = c.upload("/api/upload", "x.csv", ordersCSV, "name", "orders")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "TBL002", decodeBody[ErrorResponse](t, body).Code)

	resp, _ = c.upload("/api/upload", "x.csv", ordersCSV, "name", "orders", "replace", "true")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = c.get("/api/tables")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tables := decodeBody[[]core.TableInfo](t, body)
	require.Len(t, tables, 1)
	assert.True(t, tables[0].Current)
}

func TestUpload_Errors(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))

	tests := []struct {
		name     string
		filename string
		content  string
		status   int
		code     string
	}{
		{"too large", "big.csv", strings.Repeat("a\n", 40<<10), http.StatusRequestEntityTooLarge, "FILE001"},
		{"empty", "empty.csv", "", http.StatusBadRequest, "FILE005"},
		{"ragged", "bad.csv", "a,b\n1\n", http.StatusBadRequest, "FILE002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := c.upload("/api/upload", tt.filename, tt.content)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Equal(t, tt.code, decodeBody[ErrorResponse](t, body).Code)
		})
	}

	req, err := http.NewRequest(http.MethodPost, c.base+"/api/upload", strings.NewReader("x"))
	require.NoError(t, err)
	resp, body := c.do(req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "FILE005", decodeBody[ErrorResponse](t, body).Code)
}

func TestOverview(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))
	loadFixtures(t, c)

	resp, body := c.get("/api/tables/orders/overview?head=2")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var ov struct {
		Name    string `json:"name"`
		Rows    int    `json:"rows"`
		Columns int    `json:"columns"`
		Schema  []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"schema"`
		Classes struct {
			Numeric []string `json:"numeric"`
		} `json:"classes"`
		Head TablePayload `json:"head"`
	}
	require.NoError(t, json.Unmarshal(body, &ov))
	assert.Equal(t, "orders", ov.Name)
	assert.Equal(t, 4, ov.Rows)
	assert.Equal(t, "numeric", ov.Schema[0].Type)
	assert.Equal(t, []string{"id", "customer_id", "amount"}, ov.Classes.Numeric)
	assert.Len(t, ov.Head.Rows, 2)
	assert.True(t, ov.Head.Truncated)

	resp, body = c.get("/api/tables/missing/overview")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "TBL001", decodeBody[ErrorResponse](t, body).Code)
}

func TestFilter(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))
	loadFixtures(t, c)

	resp, body := c.postJSON("/api/tables/orders/filter", `{
		"where": [{"column": "amount", "op": "gt", "value": "4"}],
		"columns": ["id", "amount"],
		"sort": [{"column": "amount", "descending": true}],
		"save_as": "big_orders"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	view := decodeBody[ViewResponse](t, body)
	assert.Equal(t, "big_orders", view.SavedAs)
	assert.Equal(t, "orders_filtered", view.SuggestedName)
	assert.Equal(t, 3, view.Data.TotalRows)
	assert.Equal(t, []any{4.0, 9.0}, view.Data.Rows[0])

	resp, _ = c.get("/api/tables/big_orders/overview")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFilter_Errors(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))
	loadFixtures(t, c)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"unknown column", `{"where": [{"column": "amout", "value": "1"}]}`, http.StatusBadRequest, "COL001"},
		{"bad operand", `{"where": [{"column": "amount", "op": "gt", "value": "lots"}]}`, http.StatusBadRequest, "CFG001"},
		{"unknown field", `{"filters": []}`, http.StatusBadRequest, "REQ001"},
		{"wrong type", `{"where": [{"column": "amount", "value": 4}]}`, http.StatusBadRequest, "REQ001"},
		{"malformed", `{"where": [`, http.StatusBadRequest, "REQ001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := c.postJSON("/api/tables/orders/filter", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Equal(t, tt.code, decodeBody[ErrorResponse](t, body).Code)
		})
	}
}

func TestAggregate(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))
	loadFixtures(t, c)

	resp, body := c.postJSON("/api/tables/orders/aggregate",
		`{"group_by": ["customer_id"], "values": ["amount"], "funcs": ["sum", "count"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	res := decodeBody[AggregateResponse](t, body)
	assert.Equal(t, "orders_by_customer_id", res.SuggestedName)
	assert.Equal(t, [][]any{{10.0, 14.0, 2.0}, {11.0, 7.0, 1.0}, {12.0, 1.0, 1.0}}, res.Data.Rows)
	require.NotNil(t, res.Chart)
	assert.Equal(t, "amount_sum", res.Chart.YAxis)
	assert.Len(t, res.Chart.Series[0].Data, 3)

	resp, body = c.postJSON("/api/tables/orders/aggregate",
		`{"group_by": ["customer_id"], "values": ["amount"], "funcs": ["mode"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CFG001", decodeBody[ErrorResponse](t, body).Code)
}

func TestJoinSaveAndExport(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))
	loadFixtures(t, c)

	resp, body := c.postJSON("/api/join", `{
		"left": "orders", "right": "customers", "how": "left",
		"left_on": ["customer_id"], "right_on": ["customer_id"], "save": true
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	res := decodeBody[JoinResponse](t, body)
	assert.Equal(t, "orders_join_customers", res.SavedAs)
	assert.Equal(t, 4, res.LeftRows)
	assert.Equal(t, 2, res.RightRows)
	assert.Equal(t, 4, res.Data.TotalRows)

	resp, body = c.get("/api/result/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="orders_join_customers.csv"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(string(body), "id,customer_id,amount,name,region\n1,10,5,Ann,west\n"), string(body))

	resp, body = c.get("/api/tables/orders_join_customers/export?format=parquet")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PAR1", string(body[:4]))

	resp, body = c.get("/api/tables/orders/export?format=xlsx")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, "FILE004", decodeBody[ErrorResponse](t, body).Code)
}

func TestJoin_KindSpellings(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))
	loadFixtures(t, c)

	tests := []struct {
		how      string
		wantRows int
	}{
		{"inner", 3},
		{"left-outer", 4},
		{"RIGHT-OUTER", 3},
		{"full-outer", 4},
		{"full_outer", 4},
		{"", 3},
	}
	for _, tt := range tests {
		t.Run(tt.how, func(t *testing.T) {
			resp, body := c.postJSON("/api/join", `{
				"left": "orders", "right": "customers", "how": "`+tt.how+`",
				"left_on": ["customer_id"], "right_on": ["customer_id"]
			}`)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
			assert.Equal(t, tt.wantRows, decodeBody[JoinResponse](t, body).Data.TotalRows)
		})
	}

	resp, body := c.postJSON("/api/join", `{
		"left": "orders", "right": "customers", "how": "sideways",
		"left_on": ["customer_id"], "right_on": ["customer_id"]
	}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "CFG001", decodeBody[ErrorResponse](t, body).Code)
}

func TestSaveResult(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))
	loadFixtures(t, c)

	resp, body := c.postJSON("/api/result/save", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SES001", decodeBody[ErrorResponse](t, body).Code)

	resp, _ = c.postJSON("/api/tables/orders/filter", `{"where": [{"column": "id", "value": "lt:3"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = c.get("/api/result")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decodeBody[ViewResponse](t, body).Data.TotalRows)

	resp, body = c.postJSON("/api/result/save", `{"name": "first_two"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, "first_two", decodeBody[map[string]string](t, body)["name"])
}

func TestSelectAndRemoveTable(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))
	loadFixtures(t, c)

	resp, body := c.postJSON("/api/tables/orders/select", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tables := decodeBody[[]core.TableInfo](t, body)
	assert.True(t, tables[0].Current)

	req, err := http.NewRequest(http.MethodDelete, c.base+"/api/tables/orders", nil)
	require.NoError(t, err)
	resp, _ = c.do(req)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = c.do(req.Clone(req.Context()))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImportDisabled(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))

	resp, body := c.get("/api/import/postgres/tables")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, "SRC001", decodeBody[ErrorResponse](t, body).Code)

	resp, body = c.postJSON("/api/import/postgres", `{"table": "orders"}`)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, "SRC001", decodeBody[ErrorResponse](t, body).Code)
}

func TestSessionsAreIsolated(t *testing.T) {
	ts := newTestServer(t, testConfig())
	alice, bob := newClient(t, ts), newClient(t, ts)
	loadFixtures(t, alice)

	_, body := bob.get("/api/tables")
	assert.Empty(t, decodeBody[[]core.TableInfo](t, body))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/tables", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "forged"})
	resp, body := newClient(t, ts).do(req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeBody[[]core.TableInfo](t, body))
}

func TestPages(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))

	resp, body := c.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "No tables loaded")

	resp, _ = c.upload("/upload", "orders.csv", ordersCSV)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/table/orders", resp.Header.Get("Location"))
	_, _ = c.upload("/upload", "customers.csv", customersCSV)

	_, body = c.get("/")
	assert.Contains(t, string(body), "2 rows × 3 columns")

	resp, body = c.get("/table/orders?filter%5Bamount%5D=gt:6&sort=amount&dir=desc")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := string(body)
	assert.Contains(t, page, "2 of 4 rows match")
	assert.Contains(t, page, `value="gt:6"`)
	assert.Less(t, strings.Index(page, "<td>9</td>"), strings.Index(page, "<td>7</td>"))

	_, body = c.get("/table/orders", "HX-Request", "true")
	assert.NotContains(t, string(body), "<!DOCTYPE html>")
	assert.Contains(t, string(body), `id="table-view"`)

	resp, body = c.get("/table/orders/aggregate?group=customer_id&values=amount&funcs=sum")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "<svg")

	resp, body = c.get("/join?left=orders&right=customers&how=inner&left_on=customer_id&save=true")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "4 left rows, 2 right rows, 3 result rows")
	assert.Contains(t, string(body), `action="/result/save"`)
	_, body = c.get("/api/tables")
	assert.Len(t, decodeBody[[]core.TableInfo](t, body), 2, "viewing a join never registers a table")

	resp, _ = c.postForm("/result/save", url.Values{"name": {"joined"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/table/joined", resp.Header.Get("Location"))
	_, body = c.get("/api/tables")
	assert.Len(t, decodeBody[[]core.TableInfo](t, body), 3)

	resp, body = c.get("/table/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "TBL001")
}

func TestMetricsEndpoint(t *testing.T) {
	c := newClient(t, newTestServer(t, testConfig()))
	c.get("/healthz")

	resp, body := c.get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `dataplay_http_requests_total{method="GET",route="/healthz",status="200"}`)
}

func TestPackageDocLivesInServerGo(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)

	var documented []string
	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		src, err := os.ReadFile(name)
		require.NoError(t, err)
		f, err := parser.ParseFile(fset, name, src, parser.PackageClauseOnly|parser.ParseComments)
		require.NoError(t, err)
		if f.Doc != nil {
			documented = append(documented, name)
		}
	}
	assert.Equal(t, []string{"server.go"}, documented)
}
