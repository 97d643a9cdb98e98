package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Sender delivers one text message; implemented by SMSClient.
type Sender interface {
	Send(phone, message string) error
}

// Notifier enqueues SMS tasks. Money paths call SendSMS after commit; a
// queueing failure is the caller's to log, never to roll back on.
type Notifier struct {
	client *asynq.Client
}

func NewNotifier(redisAddr string) *Notifier {
	return &Notifier{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

func (n *Notifier) SendSMS(phone, message string) error {
	payload := SMSPayload{Phone: phone, Message: message, Queued: time.Now()}
	b, _ := json.Marshal(payload)
	_, err := n.client.Enqueue(asynq.NewTask(TaskSMSSend, b), asynq.Queue("sms"), asynq.MaxRetry(3))
	return err
}

func (n *Notifier) Close() error {
	return n.client.Close()
}

// Server consumes the SMS queue and pushes messages to the gateway.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewServer(redisAddr string, sender Sender, log *zap.Logger) *Server {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSMSSend, func(_ context.Context, t *asynq.Task) error {
		var p SMSPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return err
		}
		if err := sender.Send(p.Phone, p.Message); err != nil {
			log.Warn("sms send failed", zap.String("phone", p.Phone), zap.Error(err))
			return err
		}
		log.Info("sms sent", zap.String("phone", p.Phone))
		return nil
	})

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"sms": 10,
		},
	})
	return &Server{srv: srv, mux: mux}
}

// Start runs the consumer in the background.
func (s *Server) Start(log *zap.Logger) {
	go func() {
		if err := s.srv.Run(s.mux); err != nil {
			log.Error("notify server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Shutdown() {
	s.srv.Shutdown()
}
