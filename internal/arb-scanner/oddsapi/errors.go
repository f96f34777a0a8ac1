package oddsapi

import (
	"errors"
	"fmt"
)

// ErrUnexpectedPayload indica resposta 200 cujo corpo não é uma lista (ex: {"message": ...})
var ErrUnexpectedPayload = errors.New("unexpected odds payload")

// APIError carrega status e mensagem retornados pelo fornecedor
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("odds api error %d: %s", e.StatusCode, e.Message)
}

// AuthenticationError: HTTP 401, chave de API inválida
type AuthenticationError struct{ APIError }

func (e *AuthenticationError) Error() string {
	return "failed to authenticate with the odds api: " + e.APIError.Error()
}

func (e *AuthenticationError) Unwrap() error { return &e.APIError }

// RateLimitError: HTTP 429 ou cota local esgotada
type RateLimitError struct {
	APIError
	Remaining int // -1 quando desconhecido
}

func (e *RateLimitError) Error() string {
	return "odds api rate limit reached: " + e.APIError.Error()
}

func (e *RateLimitError) Unwrap() error { return &e.APIError }

// ProviderError: qualquer outro status não-2xx
type ProviderError struct{ APIError }

func (e *ProviderError) Error() string {
	return "odds api request failed: " + e.APIError.Error()
}

func (e *ProviderError) Unwrap() error { return &e.APIError }

// IsFatal informa se o erro deve encerrar o scan inteiro.
// Só ErrUnexpectedPayload é tratado como falha de um único esporte.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrUnexpectedPayload)
}
