package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/gateways"
)

const (
	qos            = 1
	publishTimeout = 10 * time.Second
)

type ClientConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// publisher is the part of mqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher publishes each snapshot, retained, on <prefix>/<device id>/snapshot.
// The broker keeps only the latest one per device.
type Publisher struct {
	gateways.Switch
	client mqtt.Client
	pub    publisher
	prefix string
	log    *logrus.Entry
}

func NewPublisher(config ClientConfig, log *logrus.Entry) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info("MQTT: conexão estabelecida")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnf("MQTT: conexão perdida: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("falha ao conectar ao broker MQTT: %w", token.Error())
	}
	log.Infof("MQTT: conectado ao broker %s", config.Broker)

	p := newPublisher(client, config.TopicPrefix, log)
	p.client = client
	return p, nil
}

func newPublisher(pub publisher, prefix string, log *logrus.Entry) *Publisher {
	p := &Publisher{pub: pub, prefix: prefix, log: log}
	p.SetEnabled(true)
	return p
}

func (p *Publisher) Name() string {
	return "mqtt"
}

func (p *Publisher) Topic(deviceID int) string {
	return p.prefix + "/" + strconv.Itoa(deviceID) + "/snapshot"
}

func (p *Publisher) Upsert(ctx context.Context, snapshot entities.DeviceSnapshot) error {
	if !p.Enabled() {
		return nil
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("falha ao serializar snapshot %s: %w", snapshot.Key(), err)
	}

	topic := p.Topic(snapshot.DeviceID)
	token := p.pub.Publish(topic, qos, true, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return errors.New("tempo esgotado ao publicar no MQTT")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("falha ao publicar em %s: %w", topic, err)
	}

	p.log.Debugf("Snapshot %s publicado em %s", snapshot.Key(), topic)
	return nil
}

func (p *Publisher) Close() error {
	if p.client != nil {
		p.client.Disconnect(250)
	}
	return nil
}
