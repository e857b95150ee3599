package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"ambient-clock/internal/storage"
)

const (
	deviceID        = "ambient_clock"
	discoveryPrefix = "homeassistant/sensor"
)

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
}

type message struct {
	topic    string
	payload  []byte
	retained bool
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Println("MQTT connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		enabled:     true,
	}, nil
}

func (p *Publisher) Publish(s *storage.AstronomySnapshot) error {
	if !p.enabled || s == nil {
		return nil
	}

	msgs, err := snapshotMessages(p.topicPrefix, s)
	if err != nil {
		return err
	}

	var statusErr error
	for _, msg := range msgs {
		token := p.client.Publish(msg.topic, 0, msg.retained, msg.payload)
		token.Wait()
		if token.Error() == nil {
			continue
		}
		if msg.retained {
			statusErr = fmt.Errorf("failed to publish status: %w", token.Error())
			continue
		}
		log.Printf("Failed to publish to %s: %v", msg.topic, token.Error())
	}
	return statusErr
}

// snapshotMessages returns one plain value per sensor followed by the retained
// JSON status.
func snapshotMessages(prefix string, s *storage.AstronomySnapshot) ([]message, error) {
	values := []struct {
		name  string
		value string
	}{
		{"declination", formatFloat(s.Declination)},
		{"day_length", formatFloat(s.DayLengthHours)},
		{"moon_phase", formatFloat(s.MoonPhase)},
		{"moon_age", formatFloat(s.MoonAgeDays)},
		{"moon_phase_name", s.MoonPhaseName},
		{"moon_illumination", formatFloat(s.MoonIllumination)},
	}

	msgs := make([]message, 0, len(values)+1)
	for _, v := range values {
		msgs = append(msgs, message{topic: stateTopic(prefix, v.name), payload: []byte(v.value)})
	}

	status, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}
	msgs = append(msgs, message{topic: stateTopic(prefix, "status"), payload: status, retained: true})
	return msgs, nil
}

func (p *Publisher) PublishHomeAssistantDiscovery() error {
	if !p.enabled {
		return nil
	}

	msgs, err := discoveryMessages(p.topicPrefix)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		token := p.client.Publish(msg.topic, 0, msg.retained, msg.payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("Failed to publish discovery %s: %v", msg.topic, token.Error())
		}
	}
	return nil
}

func discoveryMessages(prefix string) ([]message, error) {
	sensors := []struct {
		Name  string
		ID    string
		Unit  string
		Icon  string
		State string
	}{
		{"Solar Declination", "declination", "°", "mdi:angle-acute", "declination"},
		{"Day Length", "day_length", "h", "mdi:weather-sunset", "day_length"},
		{"Moon Phase", "moon_phase", "", "mdi:moon-waning-crescent", "moon_phase"},
		{"Moon Age", "moon_age", "d", "mdi:calendar-clock", "moon_age"},
		{"Moon Phase Name", "moon_phase_name", "", "mdi:moon-full", "moon_phase_name"},
		{"Moon Illumination", "moon_illumination", "%", "mdi:brightness-6", "moon_illumination"},
	}

	msgs := make([]message, 0, len(sensors))
	for _, sensor := range sensors {
		config := map[string]interface{}{
			"name":        sensor.Name,
			"unique_id":   fmt.Sprintf("%s_%s", deviceID, sensor.ID),
			"state_topic": stateTopic(prefix, sensor.State),
			"icon":        sensor.Icon,
			"device": map[string]interface{}{
				"identifiers":  []string{deviceID},
				"name":         "Ambient Clock",
				"manufacturer": "ambient-clock",
				"model":        "Astronomy",
			},
		}
		if sensor.Unit != "" {
			config["unit_of_measurement"] = sensor.Unit
			config["state_class"] = "measurement"
		}

		payload, err := json.Marshal(config)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal discovery for %s: %w", sensor.ID, err)
		}
		msgs = append(msgs, message{
			topic:    fmt.Sprintf("%s/%s/%s/config", discoveryPrefix, deviceID, sensor.ID),
			payload:  payload,
			retained: true,
		})
	}
	return msgs, nil
}

func stateTopic(prefix, name string) string {
	return fmt.Sprintf("%s/astronomy/%s", prefix, name)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
