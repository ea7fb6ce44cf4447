package validate

import "testing"

func TestCNPJ(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid plain", "11222333000181", true},
		{"valid formatted", "11.222.333/0001-81", true},
		{"all identical digits", "11111111111111", false},
		{"wrong final check digit", "11222333000182", false},
		{"wrong first check digit", "11222333000171", false},
		{"too short", "1122233300018", false},
		{"too long", "112223330001811", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CNPJ(tt.in); got != tt.want {
				t.Errorf("CNPJ(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCPF(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"valid plain", "52998224725", true},
		{"valid formatted", "529.982.247-25", true},
		{"all identical digits", "11111111111", false},
		{"wrong check digit", "52998224726", false},
		{"too short", "5299822472", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CPF(tt.in); got != tt.want {
				t.Errorf("CPF(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFirstCNPJ(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"formatted in sentence", "meu cnpj é 11.222.333/0001-81 obrigado", "11222333000181"},
		{"plain digits", "cnpj 11222333000181", "11222333000181"},
		{"invalid checksum skipped", "cnpj 11.222.333/0001-82", ""},
		{"invalid then valid", "11.222.333/0001-82 e 11.222.333/0001-81", "11222333000181"},
		{"no cnpj", "bom dia, tudo bem?", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstCNPJ(tt.text); got != tt.want {
				t.Errorf("FirstCNPJ(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestFirstCPF(t *testing.T) {
	if got := FirstCPF("cpf 529.982.247-25"); got != "52998224725" {
		t.Errorf("FirstCPF = %q, want 52998224725", got)
	}
	if got := FirstCPF("cpf 529.982.247-26"); got != "" {
		t.Errorf("FirstCPF on invalid checksum = %q, want empty", got)
	}
}

func TestFirstCEP(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"dashed", "meu cep é 01310-100", "01310100"},
		{"spaced", "cep 01310 100", "01310100"},
		{"plain", "01310100", "01310100"},
		{"none", "sem cep aqui", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstCEP(tt.text); got != tt.want {
				t.Errorf("FirstCEP(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestFormatCEP(t *testing.T) {
	if got := FormatCEP("01310100"); got != "01310-100" {
		t.Errorf("FormatCEP = %q, want 01310-100", got)
	}
}

func TestSanitizeKey(t *testing.T) {
	if got := SanitizeKey("5521999998888@s.whatsapp.net"); got != "5521999998888_s.whatsapp.net" {
		t.Errorf("SanitizeKey = %q", got)
	}
}
