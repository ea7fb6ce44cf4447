// Package record maintains the per-conversation customer record (the
// "ficha"): a set of optional scalars filled incrementally from inbound
// text and registry lookups. Fields follow fill-if-absent semantics — once
// set, a field is never overwritten by a later extraction.
package record

// Turn is one entry of a conversation history.
type Turn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// Record is the structured negotiation profile for one conversation.
// Every field is optional; empty means "not yet known".
type Record struct {
	// Company
	RazaoSocial       string `json:"razao_social,omitempty"`
	CNPJ              string `json:"cnpj,omitempty"`
	InscricaoEstadual string `json:"inscricao_estadual,omitempty"`
	SituacaoCadastral string `json:"situacao_cadastral,omitempty"`

	// Contact
	RepresentanteLegal string `json:"representante_legal,omitempty"`
	RG                 string `json:"rg,omitempty"`
	CPF                string `json:"cpf,omitempty"`
	Email              string `json:"email,omitempty"`
	Telefone1          string `json:"telefone1,omitempty"`
	Telefone2          string `json:"telefone2,omitempty"`

	// Installation address
	Endereco        string `json:"endereco,omitempty"`
	Complemento     string `json:"complemento,omitempty"`
	CEP             string `json:"cep,omitempty"` // normalized, 8 digits
	Bairro          string `json:"bairro,omitempty"`
	PontoReferencia string `json:"ponto_referencia,omitempty"`
	Cidade          string `json:"cidade,omitempty"`
	Estado          string `json:"estado,omitempty"`

	// Billing
	Vencimento     string `json:"vencimento,omitempty"` // day of month
	DataVencimento string `json:"data_vencimento,omitempty"`

	// Plan / negotiation
	Portabilidade      string `json:"portabilidade,omitempty"` // Sim/Não
	Operadora          string `json:"operadora,omitempty"`
	NumeroPortado      string `json:"numero_portado,omitempty"`
	MigracaoTimParaTim bool   `json:"migracao_tim_para_tim,omitempty"` // same-carrier porting, unsupported path
	NomeCedente        string `json:"nome_cedente,omitempty"`
	CPFCedente         string `json:"cpf_cedente,omitempty"`
	TotalAcessos       string `json:"total_acessos,omitempty"` // line count
	Plano              string `json:"plano,omitempty"`
	NomenclaturaPlano  string `json:"nomenclatura_plano,omitempty"` // price label, e.g. R$ 139,99
	FastChip           string `json:"fast_chip,omitempty"`          // Sim/Não
}

// setIf writes v into *dst only when *dst is still empty and v is non-empty.
func setIf(dst *string, v string) bool {
	if *dst != "" || v == "" {
		return false
	}
	*dst = v
	return true
}

// IsEmpty reports whether no field has been filled yet.
func (r *Record) IsEmpty() bool {
	return *r == Record{}
}
