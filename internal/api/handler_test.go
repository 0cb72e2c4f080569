package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pv_design/internal/config"
	"pv_design/internal/repository"
	"pv_design/internal/service"
)

const testTemplatesJSON = `{"Trina Solar": {"4str-vertex": {
	"module_orientation": "portrait",
	"modules_per_string": 26,
	"strings_per_tracker": 4,
	"motor_placement_type": "between-strings",
	"motor_split_north": 2,
	"motor_split_south": 2,
	"module_spec": {
		"model": "TSM-DEG-20C-20-600 Vertex",
		"width_mm": 1303,
		"wattage": 600,
		"vmp": 34.6,
		"imp": 17.34,
		"voc": 41.7,
		"isc": 18.42
	}
}}}`

const testInvertersJSON = `{"INV-250": {
	"rated_power": 250000,
	"max_dc_voltage": 1500,
	"startup_voltage": 500,
	"mppt_configuration": "independent",
	"mppt_channels": [
		{"max_input_current": 26, "min_voltage": 500, "max_voltage": 1500, "num_string_inputs": 3},
		{"max_input_current": 26, "min_voltage": 500, "max_voltage": 1500, "num_string_inputs": 3},
		{"max_input_current": 26, "min_voltage": 500, "max_voltage": 1500, "num_string_inputs": 3},
		{"max_input_current": 26, "min_voltage": 500, "max_voltage": 1500, "num_string_inputs": 3}
	]
}}`

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	tplPath := filepath.Join(dir, "templates.json")
	require.NoError(t, os.WriteFile(tplPath, []byte(testTemplatesJSON), 0644))
	templates, err := repository.LoadTemplateStore(tplPath)
	require.NoError(t, err)

	invPath := filepath.Join(dir, "inverters.json")
	require.NoError(t, os.WriteFile(invPath, []byte(testInvertersJSON), 0644))
	inverters, err := repository.LoadInverterStore(invPath)
	require.NoError(t, err)

	cfg := &config.Config{
		ServerPort:        8080,
		TemplateStorePath: tplPath,
		InverterStorePath: invPath,
		ProjectDir:        filepath.Join(dir, "projects"),
		NECFactor:         1.56,
	}
	require.NoError(t, os.MkdirAll(cfg.ProjectDir, 0755))

	svc, err := service.NewService(cfg, templates, inverters)
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, svc)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPI_BlockLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/blocks",
		`{"block_id":"blk-1","template":"4str-vertex","tracker_count":3,"wiring_type":"HARNESS","inverter":"INV-250"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/blocks/blk-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var block map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &block))
	assert.Equal(t, "blk-1", block["block_id"])

	w = doJSON(t, router, http.MethodPost, "/api/blocks/blk-1/validate", "")
	require.Equal(t, http.StatusOK, w.Code)
	var verdict map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	assert.Equal(t, true, verdict["valid"])

	w = doJSON(t, router, http.MethodGet, "/api/bom", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/blocks/blk-1", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_ErrorMapping(t *testing.T) {
	router := newTestRouter(t)

	// Unknown template reference maps to 404.
	w := doJSON(t, router, http.MethodPost, "/api/blocks",
		`{"template":"nope","tracker_count":3,"wiring_type":"HARNESS"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Sizing input below the allowed NEC factor maps to 400.
	w = doJSON(t, router, http.MethodPost, "/api/sizing",
		`{"num_strings":3,"module_isc":10.5,"nec_factor":0.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A current beyond the ampacity table maps to 422.
	w = doJSON(t, router, http.MethodPost, "/api/sizing",
		`{"num_strings":100,"module_isc":10.5}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAPI_SizingWorkedExample(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/sizing",
		`{"num_strings":3,"module_isc":10.5,"nec_factor":1.56}`)
	require.Equal(t, http.StatusOK, w.Code)

	var set map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	assert.Equal(t, "10 AWG", set["string"])
	assert.Equal(t, "8 AWG", set["harness"])
}

func TestAPI_ImportPAN(t *testing.T) {
	router := newTestRouter(t)

	pan := "Model=\"Vertex\"\nWidth=1.303\nIsc=18.42\nImp=17.34\nPNom=600.0\nVoc=41.7\nVmp=34.6\n"
	req := httptest.NewRequest(http.MethodPost, "/api/modules/pan", strings.NewReader(pan))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/modules/pan", "Model=\"Vertex\"\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_TemplatesAndStats(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/templates", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hierarchical", resp["format"])

	w = doJSON(t, router, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
}
