package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a pre-built (usually mocked) rueidis client.
func NewStoreForTest(client rueidis.Client) *Store {
	return &Store{client: client}
}
