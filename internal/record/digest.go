package record

import "strings"

// Digest renders the non-empty fields as a one-line context block for the
// dialogue backend, e.g. "Razão Social: ACME | CNPJ: 112223330001... ".
func (r *Record) Digest() string {
	pairs := []struct {
		label string
		value string
	}{
		{"Razão Social", r.RazaoSocial},
		{"CNPJ", r.CNPJ},
		{"IE", r.InscricaoEstadual},
		{"Situação", r.SituacaoCadastral},
		{"Representante", r.RepresentanteLegal},
		{"CPF", r.CPF},
		{"E-mail", r.Email},
		{"Tel1", r.Telefone1},
		{"Tel2", r.Telefone2},
		{"Endereço", r.Endereco},
		{"CEP", r.CEP},
		{"Bairro", r.Bairro},
		{"Cidade", r.Cidade},
		{"UF", r.Estado},
		{"Vencimento", firstNonEmpty(r.Vencimento, r.DataVencimento)},
		{"Portabilidade", r.Portabilidade},
		{"Operadora", r.Operadora},
		{"Número Portado", r.NumeroPortado},
		{"Cedente", r.NomeCedente},
		{"CPF Cedente", r.CPFCedente},
		{"Acessos", r.TotalAcessos},
		{"Plano", r.Plano},
		{"Nomenclatura", r.NomenclaturaPlano},
		{"Fast Chip", r.FastChip},
	}

	var filled []string
	for _, p := range pairs {
		if p.value != "" {
			filled = append(filled, p.label+": "+p.value)
		}
	}
	if r.MigracaoTimParaTim {
		filled = append(filled, "Migração TIM-TIM: Sim (não fazemos)")
	}

	var extra []string
	if r.CNPJ != "" && r.RazaoSocial != "" {
		extra = append(extra, "EMPRESA CONFIRMADA: "+r.RazaoSocial+" ("+r.CNPJ+")")
	}
	if r.CEP != "" && r.Cidade != "" {
		extra = append(extra, "LOCALIZAÇÃO: "+r.Cidade+"/"+r.Estado+" - CEP "+r.CEP)
	}
	if plan := firstNonEmpty(r.Plano, r.NomenclaturaPlano); plan != "" {
		extra = append(extra, "PLANO ESCOLHIDO: "+plan)
	}
	if r.Portabilidade == "Sim" {
		carrier := r.Operadora
		if carrier == "" {
			carrier = "operadora não informada"
		}
		extra = append(extra, "PORTABILIDADE: Sim ("+carrier+")")
	}

	return strings.Join(append(filled, extra...), " | ")
}

// Checklist returns the outstanding required fields as reply-ready bullet
// lines. Porting sub-fields are required only when porting is affirmed.
func (r *Record) Checklist() []string {
	var missing []string
	if r.CNPJ == "" {
		missing = append(missing, "- CNPJ (14 dígitos)")
	}
	if r.RazaoSocial == "" {
		missing = append(missing, "- Razão Social")
	}
	if r.CEP == "" {
		missing = append(missing, "- CEP de instalação")
	}
	if r.Endereco == "" {
		missing = append(missing, "- Endereço com número e complemento")
	}
	if r.Email == "" {
		missing = append(missing, "- E-mail de contato/financeiro")
	}
	if r.Portabilidade == "" {
		missing = append(missing, "- Portabilidade (Sim/Não)")
	}
	if r.Portabilidade == "Sim" {
		if r.Operadora == "" {
			missing = append(missing, "- Operadora atual")
		}
		if r.NumeroPortado == "" {
			missing = append(missing, "- Número(s) a portar")
		}
	}
	if r.Plano == "" {
		missing = append(missing, "- Plano escolhido (Fibra/Móvel)")
	}
	if r.NomenclaturaPlano == "" {
		missing = append(missing, "- Valor do plano")
	}
	if r.Vencimento == "" && r.DataVencimento == "" {
		missing = append(missing, "- Data de vencimento desejada")
	}
	if r.TotalAcessos == "" {
		missing = append(missing, "- Total de acessos (linhas)")
	}
	return missing
}

// ApplyCNPJLookup merges normalized company-registry fields, fill-if-absent
// except for the CNPJ itself which is always recorded when still empty.
func (r *Record) ApplyCNPJLookup(cnpj string, fields map[string]string) {
	setIf(&r.CNPJ, cnpj)
	setIf(&r.RazaoSocial, fields["razao_social"])
	setIf(&r.SituacaoCadastral, fields["situacao"])
	var addr []string
	for _, k := range []string{"logradouro", "numero", "bairro", "municipio", "uf", "cep"} {
		if v := fields[k]; v != "" {
			addr = append(addr, v)
		}
	}
	if len(addr) > 0 {
		setIf(&r.Endereco, strings.Join(addr, ", "))
	}
}

// ApplyCEPLookup merges normalized postal-registry fields.
func (r *Record) ApplyCEPLookup(cep8 string, fields map[string]string) {
	setIf(&r.CEP, cep8)
	setIf(&r.Cidade, fields["city"])
	setIf(&r.Estado, fields["state"])
	setIf(&r.Bairro, fields["neighborhood"])
	setIf(&r.Endereco, fields["street"])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
