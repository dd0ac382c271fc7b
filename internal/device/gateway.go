package device

import (
	"context"

	"github.com/thatsimonsguy/qivivo-client/internal/model"
)

// Gateway has identity and a communication schedule, nothing else.
type Gateway struct {
	*base
}

func (g *Gateway) Variant() model.Variant { return model.VariantGateway }

func (g *Gateway) Capabilities() Capability { return CapabilitiesOf(model.VariantGateway) }

func (g *Gateway) Refresh(ctx context.Context) error {
	return g.RefreshInfo(ctx)
}

func (g *Gateway) Set(ctx context.Context, field Field, value any) error {
	return setField(ctx, g, field, value)
}
