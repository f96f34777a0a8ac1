package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/sports-arb-scanner/internal/arbitrage"
	"github.com/radieske/sports-arb-scanner/pkg/contracts/events"
)

// KafkaPublisher encapsula o writer Kafka e o logger.
type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
	region string
	source string
	now    func() time.Time
}

// messageWriter é o subconjunto de *kafka.Writer usado pelo publisher
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaPublisher cria um publisher para um tópico Kafka.
// A função opcionalmente garante a existência do tópico em ambientes de
// desenvolvimento e inicializa o writer com timeouts.
func NewKafkaPublisher(brokers []string, topic, region, source string, log *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 || brokers[0] == "" {
		return nil, fmt.Errorf("kafka brokers not provided")
	}

	// Criação de tópico apenas quando APP_ENV indica ambiente local ou dev.
	if env := os.Getenv("APP_ENV"); env == "local" || env == "dev" {
		ensureTopic(brokers[0], topic, log)
	}

	// Inicialização do writer com timeouts e balanceamento por hash da chave,
	// mantendo a mesma oportunidade sempre na mesma partição.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
	}

	return newPublisher(writer, region, source, log), nil
}

func newPublisher(w messageWriter, region, source string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: log, region: region, source: source, now: time.Now}
}

// ensureTopic usa o controller do cluster para emitir o CreateTopics
func ensureTopic(broker, topic string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		log.Warn("failed to connect to kafka", zap.Error(err))
		return
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		log.Warn("failed to get kafka controller", zap.Error(err))
		return
	}

	controllerAddr := fmt.Sprintf("%s:%d", controller.Host, controller.Port)
	cconn, err := kafka.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		log.Warn("failed to dial controller", zap.Error(err))
		return
	}
	defer cconn.Close()

	// particionamento e fator de replicação compatíveis com single-broker
	cfg := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}

	if err := cconn.CreateTopics(cfg); err != nil && !strings.Contains(err.Error(), "already exists") {
		log.Warn("failed to create kafka topic", zap.String("topic", topic), zap.Error(err))
	} else if err == nil {
		log.Info("kafka topic created", zap.String("topic", topic))
	}
}

// ToEvent converte a oportunidade detectada no contrato publicado
func ToEvent(opp arbitrage.Opportunity, region, source string, detectedAt time.Time) events.ArbitrageOpportunity {
	quotes := opp.BestOutcomeOdds.Quotes()
	legs := make([]events.Leg, 0, len(quotes))
	for _, q := range quotes {
		legs = append(legs, events.Leg{
			Outcome:            q.Outcome,
			Bookmaker:          q.Bookmaker,
			Price:              q.Price,
			ImpliedProbability: 1 / q.Price,
		})
	}
	return events.ArbitrageOpportunity{
		OpportunityID:           opp.ID,
		MatchName:               opp.MatchName,
		League:                  opp.League,
		MatchStartTime:          opp.MatchStartTime,
		HoursToStart:            opp.HoursToStart,
		TotalImpliedProbability: opp.TotalImpliedProbability,
		Margin:                  opp.Margin(),
		Legs:                    legs,
		Region:                  region,
		DetectedAt:              detectedAt.UTC(),
		Source:                  source,
	}
}

// Publish serializa a oportunidade em JSON e envia uma mensagem para o tópico configurado.
// A chave da mensagem utiliza o OpportunityID para garantir distribuição consistente por partição.
func (p *KafkaPublisher) Publish(ctx context.Context, opp arbitrage.Opportunity) error {
	e := ToEvent(opp, p.region, p.source, p.now())
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(e.OpportunityID),
		Value: value,
		Time:  p.now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish arbitrage opportunity", zap.Error(err))
		return err
	}

	p.log.Debug("published arbitrage opportunity",
		zap.String("opportunity_id", e.OpportunityID),
		zap.String("league", e.League),
	)
	return nil
}

// Close finaliza o writer e libera recursos associados.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
