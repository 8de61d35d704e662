package predict

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	Version1 = 1
)

var (
	registry = make(map[int]Client)
	onceMap  = make(map[int]*sync.Once)
	mu       sync.Mutex
)

// InitClient builds the client for version once; later calls return the
// same instance. It panics if the client cannot be built.
func InitClient(version int, conf *Config) Client {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := onceMap[version]; !exists {
		onceMap[version] = &sync.Once{}
	}
	onceMap[version].Do(func() {
		switch version {
		case Version1:
			client, err := NewClientV1(conf)
			if err != nil {
				log.Panic().Err(err).Msgf("Failed to initialise predict client version %d", version)
			}
			registry[version] = client
		default:
			log.Panic().Msgf("Unsupported predict client version %d", version)
		}
	})
	return registry[version]
}

func GetInstance(version int) Client {
	mu.Lock()
	defer mu.Unlock()

	if registry[version] == nil {
		log.Panic().Msgf("Client for version %d not initialised", version)
	}
	return registry[version]
}
