package endpoints

import (
	"github.com/2005lakshya/prodoc/internal/api"
)

// All returns all endpoint instances in route-registration order.
func All() []api.Endpoint {
	return []api.Endpoint{
		&HealthEndpoint{},
		&StatusEndpoint{},
		&ConfigEndpoint{},
		&AnalyzeEndpoint{},
	}
}
