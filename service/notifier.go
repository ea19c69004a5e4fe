package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expensetracker/config"
	"expensetracker/report"

	"github.com/rabbitmq/amqp091-go"
)

// BudgetAlertEvent 新增消费触发的预算提醒
type BudgetAlertEvent struct {
	UserID    uint         `json:"user_id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	ExpenseID uint         `json:"expense_id"`
	Alert     report.Alert `json:"alert"`
	Timestamp time.Time    `json:"timestamp"`
}

// ToJSON 序列化事件
func (e BudgetAlertEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// BudgetAlertEventFromJSON 反序列化事件
func BudgetAlertEventFromJSON(data []byte) (*BudgetAlertEvent, error) {
	var e BudgetAlertEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Notifier 预算提醒通知渠道
type Notifier interface {
	Name() string
	NotifyBudgetAlert(ctx context.Context, event BudgetAlertEvent) error
}

// Notifiers 依次投递到所有渠道，单个渠道失败不影响其他渠道
type Notifiers []Notifier

// Name 通知渠道名称
func (n Notifiers) Name() string {
	return "multi"
}

// NotifyBudgetAlert 投递到全部渠道，返回合并后的错误
func (n Notifiers) NotifyBudgetAlert(ctx context.Context, event BudgetAlertEvent) error {
	var errs []error
	for _, notifier := range n {
		if err := notifier.NotifyBudgetAlert(ctx, event); err != nil {
			slog.WarnContext(ctx, "预算提醒投递失败",
				"component", "notifier",
				"channel", notifier.Name(),
				"user_id", event.UserID,
				"error", err)
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// publisher amqp091.Channel 的发布能力
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPNotifier 将预算提醒发布到 RabbitMQ topic exchange
type AMQPNotifier struct {
	conn       *amqp091.Connection
	channel    publisher
	exchange   string
	routingKey string
}

// NewAMQPNotifier 连接 RabbitMQ 并声明 exchange
func NewAMQPNotifier(cfg config.AMQPConfig) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPNotifier{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}, nil
}

// Name 通知渠道名称
func (n *AMQPNotifier) Name() string {
	return "amqp"
}

// NotifyBudgetAlert 发布预算提醒事件
func (n *AMQPNotifier) NotifyBudgetAlert(ctx context.Context, event BudgetAlertEvent) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = n.channel.PublishWithContext(
		ctx,
		n.exchange,   // exchange
		n.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.Timestamp,
			Type:         string(event.Alert.Kind),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "已发布预算提醒",
		"component", "amqp",
		"user_id", event.UserID,
		"kind", event.Alert.Kind,
		"exchange", n.exchange)
	return nil
}

// Close 关闭连接
func (n *AMQPNotifier) Close() error {
	if c, ok := n.channel.(*amqp091.Channel); ok && c != nil {
		c.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
