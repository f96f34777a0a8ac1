package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/radieske/sports-arb-scanner/internal/arbitrage"
)

// printer escreve uma oportunidade por linha em JSON
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer { return &printer{w: w} }

func (p *printer) Print(opp arbitrage.Opportunity) error {
	b, err := json.Marshal(opp)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintln(p.w, string(b))
	return err
}
