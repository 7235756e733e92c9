package report

type Report struct {
	Run          *RunReport          `json:"run,omitempty"`
	Catalog      *CatalogReport      `json:"catalog,omitempty"`
	Orchestrator *OrchestratorReport `json:"orchestrator,omitempty"`
}
