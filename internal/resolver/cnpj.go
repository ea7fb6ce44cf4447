package resolver

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// CNPJ provider chain: BrasilAPI first, ReceitaWS as community fallback.
// Both are normalized to the same field set so the cache and the record
// layer are provider-agnostic: razao_social, nome_fantasia, situacao, cnae,
// logradouro, numero, bairro, municipio, uf, cep, data_inicio.

const (
	BrasilAPIBaseURL = "https://brasilapi.com.br"
	ReceitaWSBaseURL = "https://www.receitaws.com.br"
)

// NewBrasilAPICNPJ returns the primary CNPJ registry provider. baseURL ""
// selects production.
func NewBrasilAPICNPJ(baseURL string) Provider {
	if baseURL == "" {
		baseURL = BrasilAPIBaseURL
	}
	return &httpProvider{
		name:    "BrasilAPI",
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		url: func(key string) string {
			return baseURL + "/api/cnpj/v1/" + key
		},
		parse: parseBrasilAPICNPJ,
	}
}

// NewReceitaWSCNPJ returns the secondary CNPJ provider. ReceitaWS reports
// errors as 200 responses with status=ERROR and throttles free clients to
// 3 requests per minute, hence the tight limiter.
func NewReceitaWSCNPJ(baseURL string) Provider {
	if baseURL == "" {
		baseURL = ReceitaWSBaseURL
	}
	return &httpProvider{
		name:    "ReceitaWS",
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(rate.Every(20*time.Second), 3),
		url: func(key string) string {
			return baseURL + "/v1/cnpj/" + key
		},
		parse: parseReceitaWSCNPJ,
	}
}

func parseBrasilAPICNPJ(body []byte) (map[string]string, error) {
	var payload struct {
		RazaoSocial         string `json:"razao_social"`
		NomeFantasia        string `json:"nome_fantasia"`
		Situacao            string `json:"descricao_situacao_cadastral"`
		CNAEDescricao       string `json:"cnae_fiscal_descricao"`
		Logradouro          string `json:"logradouro"`
		Numero              string `json:"numero"`
		Bairro              string `json:"bairro"`
		Municipio           string `json:"municipio"`
		UF                  string `json:"uf"`
		CEP                 string `json:"cep"`
		DataInicioAtividade string `json:"data_inicio_atividade"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.RazaoSocial == "" {
		return nil, fmt.Errorf("no razao_social in payload")
	}
	return nonEmpty(map[string]string{
		"razao_social": payload.RazaoSocial,
		"nome_fantasia": payload.NomeFantasia,
		"situacao":     payload.Situacao,
		"cnae":         payload.CNAEDescricao,
		"logradouro":   payload.Logradouro,
		"numero":       payload.Numero,
		"bairro":       payload.Bairro,
		"municipio":    payload.Municipio,
		"uf":           payload.UF,
		"cep":          payload.CEP,
		"data_inicio":  payload.DataInicioAtividade,
	}), nil
}

func parseReceitaWSCNPJ(body []byte) (map[string]string, error) {
	var payload struct {
		Status            string `json:"status"`
		Nome              string `json:"nome"`
		Fantasia          string `json:"fantasia"`
		Situacao          string `json:"situacao"`
		AtividadePrincipal []struct {
			Text string `json:"text"`
		} `json:"atividade_principal"`
		Logradouro string `json:"logradouro"`
		Numero     string `json:"numero"`
		Bairro     string `json:"bairro"`
		Municipio  string `json:"municipio"`
		UF         string `json:"uf"`
		CEP        string `json:"cep"`
		Abertura   string `json:"abertura"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if strings.EqualFold(payload.Status, "ERROR") {
		return nil, fmt.Errorf("receitaws status ERROR")
	}
	if payload.Nome == "" {
		return nil, fmt.Errorf("no company name in payload")
	}
	cnae := ""
	if len(payload.AtividadePrincipal) > 0 {
		cnae = payload.AtividadePrincipal[0].Text
	}
	return nonEmpty(map[string]string{
		"razao_social": payload.Nome,
		"nome_fantasia": payload.Fantasia,
		"situacao":     payload.Situacao,
		"cnae":         cnae,
		"logradouro":   payload.Logradouro,
		"numero":       payload.Numero,
		"bairro":       payload.Bairro,
		"municipio":    payload.Municipio,
		"uf":           payload.UF,
		"cep":          payload.CEP,
		"data_inicio":  payload.Abertura,
	}), nil
}

// FormatCNPJSummary renders the verified registry data as the confirmation
// line sent back to the customer.
func FormatCNPJSummary(fields map[string]string, cnpj string) string {
	parts := []string{"CNPJ: " + cnpj}
	add := func(label, key string) {
		if v := fields[key]; v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Razão Social", "razao_social")
	add("Nome Fantasia", "nome_fantasia")
	add("Situação", "situacao")
	add("CNAE", "cnae")

	var addr []string
	for _, k := range []string{"logradouro", "numero", "bairro", "municipio", "uf", "cep"} {
		if v := fields[k]; v != "" {
			addr = append(addr, v)
		}
	}
	if len(addr) > 0 {
		parts = append(parts, "Endereço: "+strings.Join(addr, ", "))
	}
	return strings.Join(parts, " | ")
}

// CompanyAgeMonths derives the company age in whole elapsed months from the
// registry opening date (YYYY-MM-DD or DD/MM/YYYY). A month only counts once
// its day of month has passed. Returns ok=false when the date is absent or
// unparseable.
func CompanyAgeMonths(fields map[string]string, now time.Time) (int, bool) {
	raw := fields["data_inicio"]
	if raw == "" {
		return 0, false
	}
	var start time.Time
	var err error
	if strings.Contains(raw, "/") {
		start, err = time.Parse("02/01/2006", raw)
	} else {
		start, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		return 0, false
	}
	months := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	if now.Day() < start.Day() {
		months--
	}
	return months, true
}
