package observers

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"neuropulse/internal/models"
)

const UpdatesChannel = "neuropulse:updates"

// Publisher fans monitor updates out over redis pub/sub.
type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client, channel: UpdatesChannel}
}

func (p *Publisher) Publish(ctx context.Context, msg models.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}
