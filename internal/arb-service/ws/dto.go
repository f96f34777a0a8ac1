package ws

import "encoding/json"

// AllLeagues assina todas as ligas
const AllLeagues = "*"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// League: obrigatório para subscribe/unsubscribe ("*" = todas)
type ClientMsg struct {
	Type   string `json:"type"`   // subscribe | unsubscribe | ping
	League string `json:"league"` // requerido em subscribe/unsubscribe
}

// OpportunityUpdate representa uma oportunidade enviada para clientes WebSocket
type OpportunityUpdate struct {
	League        string          `json:"league"`
	OpportunityID string          `json:"opportunityId"`
	Payload       json.RawMessage `json:"payload"`
}

// ServerMsg é a resposta de controle enviada ao cliente
type ServerMsg struct {
	Type   string `json:"type"` // pong | subscribed | unsubscribed | error
	League string `json:"league,omitempty"`
	Error  string `json:"error,omitempty"`
}
