package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valentimdigital/IADESPEDIDA/internal/cache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []string
}

func (a *auditRecorder) AppendLookupAudit(_ context.Context, conversationID, kind, key, source string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, conversationID+"/"+kind+"/"+key+"/"+source)
	return nil
}

// countingProvider wraps a provider and counts Fetch calls.
type countingProvider struct {
	name   string
	calls  int
	fields map[string]string
	err    error
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) Fetch(context.Context, string) (map[string]string, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.fields, nil
}

func TestResolve_CacheHitShortCircuitsProviders(t *testing.T) {
	c := cache.New(cache.NewMemory(), 24*time.Hour)
	seeded, _ := json.Marshal(map[string]string{"razao_social": "ACME LTDA"})
	if err := c.Put(context.Background(), "cnpj_11222333000181", seeded); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	primary := &countingProvider{name: "BrasilAPI", fields: map[string]string{"razao_social": "WRONG"}}
	audit := &auditRecorder{}
	r := New("cnpj", c, audit, discardLogger(), primary)

	res, err := r.Resolve(context.Background(), "jid1", "11222333000181")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != ProvenanceCache {
		t.Errorf("source = %q, want cache", res.Source)
	}
	if res.Fields["razao_social"] != "ACME LTDA" {
		t.Errorf("fields = %v", res.Fields)
	}
	if primary.calls != 0 {
		t.Errorf("provider called %d times on cache hit", primary.calls)
	}
	if len(audit.entries) != 1 || audit.entries[0] != "jid1/cnpj/11222333000181/cache" {
		t.Errorf("audit entries = %v", audit.entries)
	}
}

func TestResolve_FallbackToSecondary(t *testing.T) {
	c := cache.New(cache.NewMemory(), 24*time.Hour)
	primary := &countingProvider{name: "BrasilAPI", err: errors.New("boom")}
	secondary := &countingProvider{name: "ReceitaWS", fields: map[string]string{"razao_social": "ACME LTDA"}}
	audit := &auditRecorder{}
	r := New("cnpj", c, audit, discardLogger(), primary, secondary)

	res, err := r.Resolve(context.Background(), "jid1", "11222333000181")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != "ReceitaWS" {
		t.Errorf("source = %q, want ReceitaWS", res.Source)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("calls: primary=%d secondary=%d", primary.calls, secondary.calls)
	}
	if len(audit.entries) != 1 || !strings.HasSuffix(audit.entries[0], "/ReceitaWS") {
		t.Errorf("audit entries = %v", audit.entries)
	}

	// Write-through: a second resolve must be served from cache.
	res2, err := r.Resolve(context.Background(), "jid1", "11222333000181")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if res2.Source != ProvenanceCache {
		t.Errorf("second source = %q, want cache", res2.Source)
	}
	if secondary.calls != 1 {
		t.Errorf("secondary called again after write-through: %d", secondary.calls)
	}
}

func TestResolve_AllProvidersFail(t *testing.T) {
	c := cache.New(cache.NewMemory(), 24*time.Hour)
	primary := &countingProvider{name: "BrasilAPI", err: errors.New("down")}
	secondary := &countingProvider{name: "ReceitaWS", err: errors.New("down too")}
	r := New("cnpj", c, nil, discardLogger(), primary, secondary)

	_, err := r.Resolve(context.Background(), "jid1", "11222333000181")
	var failed *FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("error = %v, want *FailedError", err)
	}
	if failed.Kind != "cnpj" || len(failed.Attempted) != 2 {
		t.Errorf("failed = %+v", failed)
	}
	if !strings.Contains(failed.Error(), "BrasilAPI") || !strings.Contains(failed.Error(), "ReceitaWS") {
		t.Errorf("error message should name attempted providers: %v", failed)
	}
}

func TestBrasilAPICNPJ_ParsesAndNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/api/cnpj/v1/11222333000181" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		io.WriteString(w, `{
			"razao_social": "ACME LTDA",
			"nome_fantasia": "ACME",
			"descricao_situacao_cadastral": "ATIVA",
			"cnae_fiscal_descricao": "Comércio varejista",
			"logradouro": "Av Paulista",
			"numero": "1000",
			"bairro": "Bela Vista",
			"municipio": "São Paulo",
			"uf": "SP",
			"cep": "01310100",
			"data_inicio_atividade": "2015-03-10"
		}`)
	}))
	defer server.Close()

	p := NewBrasilAPICNPJ(server.URL)
	fields, err := p.Fetch(context.Background(), "11222333000181")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fields["razao_social"] != "ACME LTDA" || fields["situacao"] != "ATIVA" || fields["uf"] != "SP" {
		t.Errorf("fields = %v", fields)
	}

	months, ok := CompanyAgeMonths(fields, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	if !ok || months != 125 {
		t.Errorf("age = %d ok=%v, want 125", months, ok)
	}
}

func TestReceitaWSCNPJ_StatusErrorFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"status":"ERROR","message":"CNPJ inválido"}`)
	}))
	defer server.Close()

	p := NewReceitaWSCNPJ(server.URL)
	if _, err := p.Fetch(context.Background(), "11222333000181"); err == nil {
		t.Fatal("status ERROR body must be a provider failure")
	}
}

func TestReceitaWSCNPJ_ParsesAndNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{
			"status": "OK",
			"nome": "ACME LTDA",
			"fantasia": "ACME",
			"situacao": "ATIVA",
			"atividade_principal": [{"text": "Comércio varejista"}],
			"abertura": "10/03/2015"
		}`)
	}))
	defer server.Close()

	p := NewReceitaWSCNPJ(server.URL)
	fields, err := p.Fetch(context.Background(), "11222333000181")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fields["razao_social"] != "ACME LTDA" || fields["cnae"] != "Comércio varejista" {
		t.Errorf("fields = %v", fields)
	}
	months, ok := CompanyAgeMonths(fields, time.Date(2015, 7, 1, 0, 0, 0, 0, time.UTC))
	if !ok || months != 3 {
		t.Errorf("age = %d ok=%v, want 3", months, ok)
	}
}

func TestCompanyAgeMonths_DayBoundary(t *testing.T) {
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		dataInicio string
		want       int
		ok         bool
	}{
		{"one day short of six months", "2025-03-02", 5, true},
		{"exactly six months", "2025-03-01", 6, true},
		{"mid month not yet reached", "2025-03-15", 5, true},
		{"slash format", "15/03/2025", 5, true},
		{"absent", "", 0, false},
		{"unparseable", "março de 2025", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string]string{}
			if tt.dataInicio != "" {
				fields["data_inicio"] = tt.dataInicio
			}
			months, ok := CompanyAgeMonths(fields, now)
			if ok != tt.ok || months != tt.want {
				t.Errorf("CompanyAgeMonths(%q) = %d, %v; want %d, %v", tt.dataInicio, months, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestViaCEP_ErroBodyFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"erro": true}`)
	}))
	defer server.Close()

	p := NewViaCEP(server.URL)
	if _, err := p.Fetch(context.Background(), "00000000"); err == nil {
		t.Fatal("erro=true body must be a provider failure")
	}
}

func TestViaCEP_MapsFieldNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/ws/01310100/json/" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		io.WriteString(w, `{"uf":"SP","localidade":"São Paulo","bairro":"Bela Vista","logradouro":"Avenida Paulista"}`)
	}))
	defer server.Close()

	p := NewViaCEP(server.URL)
	fields, err := p.Fetch(context.Background(), "01310100")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if fields["state"] != "SP" || fields["city"] != "São Paulo" || fields["street"] != "Avenida Paulista" {
		t.Errorf("fields = %v", fields)
	}
}

func TestBrasilAPICEP_NonOKStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewBrasilAPICEP(server.URL)
	if _, err := p.Fetch(context.Background(), "99999999"); err == nil {
		t.Fatal("404 must be a provider failure")
	}
}

func TestFormatSummaries(t *testing.T) {
	cnpjSummary := FormatCNPJSummary(map[string]string{
		"razao_social": "ACME LTDA",
		"situacao":     "ATIVA",
		"municipio":    "São Paulo",
		"uf":           "SP",
	}, "11222333000181")
	for _, want := range []string{"CNPJ: 11222333000181", "Razão Social: ACME LTDA", "Situação: ATIVA", "Endereço: São Paulo, SP"} {
		if !strings.Contains(cnpjSummary, want) {
			t.Errorf("cnpj summary missing %q: %s", want, cnpjSummary)
		}
	}

	cepSummary := FormatCEPSummary(map[string]string{"state": "SP", "city": "São Paulo"}, "01310100")
	if !strings.Contains(cepSummary, "CEP: 01310-100") || !strings.Contains(cepSummary, "Cidade: São Paulo") {
		t.Errorf("cep summary = %s", cepSummary)
	}
}
