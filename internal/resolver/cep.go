package resolver

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/valentimdigital/IADESPEDIDA/internal/validate"
)

// CEP provider chain: BrasilAPI first, ViaCEP fallback. Normalized fields:
// state, city, neighborhood, street.

const ViaCEPBaseURL = "https://viacep.com.br"

// NewBrasilAPICEP returns the primary postal-code provider.
func NewBrasilAPICEP(baseURL string) Provider {
	if baseURL == "" {
		baseURL = BrasilAPIBaseURL
	}
	return &httpProvider{
		name:    "BrasilAPI",
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		url: func(key string) string {
			return baseURL + "/api/cep/v1/" + key
		},
		parse: parseBrasilAPICEP,
	}
}

// NewViaCEP returns the secondary postal-code provider. ViaCEP reports an
// unknown CEP as a 200 response with "erro": true.
func NewViaCEP(baseURL string) Provider {
	if baseURL == "" {
		baseURL = ViaCEPBaseURL
	}
	return &httpProvider{
		name:    "ViaCEP",
		client:  newHTTPClient(),
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		url: func(key string) string {
			return baseURL + "/ws/" + key + "/json/"
		},
		parse: parseViaCEP,
	}
}

func parseBrasilAPICEP(body []byte) (map[string]string, error) {
	var payload struct {
		State        string `json:"state"`
		City         string `json:"city"`
		Neighborhood string `json:"neighborhood"`
		Street       string `json:"street"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.City == "" && payload.State == "" {
		return nil, fmt.Errorf("no location in payload")
	}
	return nonEmpty(map[string]string{
		"state":        payload.State,
		"city":         payload.City,
		"neighborhood": payload.Neighborhood,
		"street":       payload.Street,
	}), nil
}

func parseViaCEP(body []byte) (map[string]string, error) {
	var payload struct {
		Erro       bool   `json:"erro"`
		UF         string `json:"uf"`
		Localidade string `json:"localidade"`
		Bairro     string `json:"bairro"`
		Logradouro string `json:"logradouro"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Erro {
		return nil, fmt.Errorf("viacep: cep not found")
	}
	return nonEmpty(map[string]string{
		"state":        payload.UF,
		"city":         payload.Localidade,
		"neighborhood": payload.Bairro,
		"street":       payload.Logradouro,
	}), nil
}

// FormatCEPSummary renders the verified postal data as the confirmation
// line sent back to the customer.
func FormatCEPSummary(fields map[string]string, cep8 string) string {
	parts := []string{"CEP: " + validate.FormatCEP(cep8)}
	add := func(label, key string) {
		if v := fields[key]; v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("UF", "state")
	add("Cidade", "city")
	add("Bairro", "neighborhood")
	add("Logradouro", "street")
	return strings.Join(parts, " | ")
}
