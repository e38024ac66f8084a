package bootstrap

import (
	"github.com/specvital/codedoc/internal/adapter/ai/provider"
	"github.com/specvital/codedoc/internal/infra/config"
)

// ModelReport describes how calls to one configured model will be made.
type ModelReport struct {
	Endpoint string
	Error    string
	Family   provider.Family
	Name     string
}

// ClassifyModels resolves family and endpoint for every configured model, in order.
// Endpoint resolution failures are reported, not returned.
func ClassifyModels(cfg *config.Config) []ModelReport {
	models := cfg.ModelDescriptors()
	reports := make([]ModelReport, len(models))
	for i, m := range models {
		reports[i] = ModelReport{
			Family: provider.Classify(m),
			Name:   m.Name,
		}
		endpoint, err := provider.ResolveEndpoint(m)
		if err != nil {
			reports[i].Error = err.Error()
			continue
		}
		reports[i].Endpoint = endpoint
	}
	return reports
}
