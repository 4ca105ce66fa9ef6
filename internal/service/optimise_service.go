package service

import (
	"context"

	"prompt-optimiser-be/internal/dto"
	"prompt-optimiser-be/pkg/identity"
	"prompt-optimiser-be/pkg/optimiser"
	"prompt-optimiser-be/pkg/optimiser/orchestrator"
	"prompt-optimiser-be/pkg/vendor"
)

type IOptimiseService interface {
	Optimise(ctx context.Context, headers identity.HeaderFunc, req *dto.OptimiseRequest) (map[string]any, error)
	Vendors() []dto.VendorResponse
}

type optimiseService struct {
	orchestrator *orchestrator.Orchestrator
}

func NewOptimiseService(orch *orchestrator.Orchestrator) IOptimiseService {
	return &optimiseService{orchestrator: orch}
}

func (s *optimiseService) Optimise(ctx context.Context, headers identity.HeaderFunc, req *dto.OptimiseRequest) (map[string]any, error) {
	return s.orchestrator.Handle(ctx, headers, orchestrator.Request{
		Mode:              optimiser.Mode(req.Mode),
		Vendor:            req.Vendor,
		Model:             req.Model,
		InputText:         req.InputText,
		AdditionalContext: req.AdditionalContext,
		EntryMode:         optimiser.EntryMode(req.EntryMode),
		ProblemContext:    req.ProblemContext,
	})
}

func (s *optimiseService) Vendors() []dto.VendorResponse {
	all := vendor.All()
	res := make([]dto.VendorResponse, 0, len(all))
	for _, v := range all {
		res = append(res, dto.VendorResponse{Id: v.ID, Name: v.Name, Models: v.Models})
	}
	return res
}
