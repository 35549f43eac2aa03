// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"context"
	"fmt"

	"github.com/brush-gfx/brush/gpu/internal/device"
	"github.com/brush-gfx/brush/gpu/internal/raster"
	"github.com/brush-gfx/brush/gpu/internal/project"
	"github.com/brush-gfx/brush/splat"
)

// runBackward executes stages 9 and 10 (spec.md §4.9/§4.10) against a
// forward call's RenderAux bundle.
func runBackward(ctx context.Context, dev *device.Device, aux *RenderAux, dLdImage []float32) (*splat.Grads, error) {
	if aux == nil {
		panic("gpu: Backward called with a nil aux (render must be called with KeepAuxForBackward=true)")
	}
	want := aux.cam.ImgWidth * aux.cam.ImgHeight * 3
	if len(dLdImage) != want {
		panic(fmt.Sprintf("gpu: Backward: dLdImage has %d entries, want %d (width*height*3)", len(dLdImage), want))
	}

	rasterGrads, err := raster.Backward(ctx, dev, aux.visible.Projected, aux.sorted, aux.tileOffsets, aux.forward, dLdImage, aux.visible.TilesX, aux.visible.TilesY, aux.cam.ImgWidth, aux.cam.ImgHeight)
	if err != nil {
		return nil, fmt.Errorf("gpu: raster backward: %w", err)
	}

	grads, err := project.Backward(ctx, dev, aux.params, aux.cam, aux.cull, aux.visible.Projected, rasterGrads)
	if err != nil {
		return nil, fmt.Errorf("gpu: project-backward: %w", err)
	}
	return grads, nil
}
