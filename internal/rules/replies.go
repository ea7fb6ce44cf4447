package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Replies holds the canned texts used by the interceptor. Operators can
// override any of them from a YAML file; unset keys keep the defaults.
type Replies struct {
	PriceObjection      string `yaml:"price_objection"`
	CoverageObjection   string `yaml:"coverage_objection"`
	ContractObjection   string `yaml:"contract_objection"`
	TrustObjection      string `yaml:"trust_objection"`
	ProcessObjection    string `yaml:"process_objection"`
	InstallmentQuestion string `yaml:"installment_question"`
	AskCNPJ             string `yaml:"ask_cnpj"`
	YoungCompany        string `yaml:"young_company"`
	DocsEmail           string `yaml:"docs_email"`
	DefaultPlanPrice    string `yaml:"default_plan_price"`
}

// DefaultReplies returns the built-in reply set. PriceObjection carries a
// {price} placeholder filled with the negotiated plan price.
func DefaultReplies() Replies {
	return Replies{
		PriceObjection: `Entendo sua preocupação com investimento. O valor {price} inclui:
• Conectividade de alta velocidade (até 100x mais rápida)
• Suporte técnico especializado 24/7
• Economia em múltiplas linhas (gestão única)
• ROI comprovado: empresas economizam até 30% vs concorrentes
• Sem taxa de instalação (economia imediata)

Posso mostrar um plano mais econômico?`,
		CoverageObjection: `Perfeito! Mesmo sem fibra, temos solução completa:
• TIM Empresa Internet (Roteador 4G) - mesma velocidade
• Plug and play - funciona em 24h
• 7 dias de teste gratuito (sem multa)
• Cobertura 4G+ em todo RJ/MG/ES
• Mesmo suporte técnico especializado

Quer testar por 7 dias sem compromisso?`,
		ContractObjection: `A fidelização de 24 meses garante:
• Preço fixo (sem reajustes surpresa)
• Suporte prioritário
• Upgrade gratuito quando disponível
• Estabilidade para seu negócio

Mas se precisar cancelar, cobramos apenas o proporcional dos meses restantes (sem multa abusiva).`,
		TrustObjection: `Somos Parceiros Oficiais TIM com:
• 15+ anos de experiência
• Suporte técnico especializado
• SLA de 99,9% de disponibilidade
• Equipe certificada pela TIM
• Mais de 10.000 empresas atendidas

Posso enviar referências de clientes na sua região?`,
		ProcessObjection: `Nosso processo é super simples:
• Documentos por WhatsApp (foto mesmo)
• Validação em até 24h
• Instalação em 48h
• Eu conduzo tudo para você
• Atualização a cada etapa

Só preciso de: CNPJ + documento com foto + comprovante de endereço.`,
		InstallmentQuestion: `O pagamento dos planos TIM é realizado mensalmente por débito em conta, não sendo possível o parcelamento do valor total.

Os valores são cobrados mensalmente via débito automático, facilitando o controle financeiro da empresa.`,
		AskCNPJ:          "Entendi o CPF. Para seguirmos, preciso do CNPJ da empresa (14 dígitos). Pode me informar o CNPJ?",
		YoungCompany:     "Pelo cadastro, a empresa tem menos de 6 meses. No momento não trabalhamos com CNPJs com menos de 6 meses de abertura.",
		DocsEmail:        "valentimdigitalnegocios@gmail.com",
		DefaultPlanPrice: "R$ 139,99",
	}
}

// LoadReplies overlays the defaults with the YAML file at path. An empty
// path returns the defaults unchanged.
func LoadReplies(path string) (Replies, error) {
	replies := DefaultReplies()
	if path == "" {
		return replies, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return replies, fmt.Errorf("read replies file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &replies); err != nil {
		return replies, fmt.Errorf("parse replies file: %w", err)
	}
	return replies, nil
}
