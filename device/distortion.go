// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Distortion is a radial barrel distortion model. A point at normalized
// radius r on the panel samples the rendered eye image at radius
// r * (K0 + K1 r² + K2 r⁴ + K3 r⁶) / Scale.
type Distortion struct {
	K     [4]float64
	Scale float64
}

// DefaultDistortion returns the development-kit lens coefficients, scaled
// so that the midpoints of the eye's edges sample the edges of the image.
func DefaultDistortion() Distortion {
	d := Distortion{K: [4]float64{1.0, 0.22, 0.24, 0}}
	d.Scale = d.factor(1)
	return d
}

func (d Distortion) factor(r2 float64) float64 {
	return d.K[0] + r2*(d.K[1]+r2*(d.K[2]+r2*d.K[3]))
}

// Warp maps normalized panel coordinates in [-1, 1] to normalized source
// image coordinates. ok is false when the source point falls outside the
// image.
func (d Distortion) Warp(x, y float64) (sx, sy float64, ok bool) {
	scale := d.Scale
	if scale == 0 {
		scale = 1
	}
	f := d.factor(x*x+y*y) / scale
	sx, sy = x*f, y*f
	return sx, sy, sx >= -1 && sx <= 1 && sy >= -1 && sy <= 1
}

// distortionShaderSource renders one eye through the lens model. It draws
// a single full-screen triangle and samples the eye texture at the warped
// coordinate; the math matches Distortion.Warp.
const distortionShaderSource = `
struct Lens {
    k: vec4<f32>,
    params: vec4<f32>,
};

@group(0) @binding(0) var<uniform> lens: Lens;
@group(0) @binding(1) var eye_texture: texture_2d<f32>;
@group(0) @binding(2) var eye_sampler: sampler;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) ndc: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOutput {
    let x = f32((index << 1u) & 2u) * 2.0 - 1.0;
    let y = f32(index & 2u) * 2.0 - 1.0;
    var out: VertexOutput;
    out.position = vec4<f32>(x, y, 0.0, 1.0);
    out.ndc = vec2<f32>(x, y);
    return out;
}

@fragment
fn fs_main(v: VertexOutput) -> @location(0) vec4<f32> {
    let r2 = dot(v.ndc, v.ndc);
    let f = lens.k.x + r2 * (lens.k.y + r2 * (lens.k.z + r2 * lens.k.w));
    let p = v.ndc * (f / lens.params.x);
    let uv = vec2<f32>(p.x * 0.5 + 0.5, 0.5 - p.y * 0.5);
    let color = textureSample(eye_texture, eye_sampler, uv);
    let inside = abs(p.x) <= 1.0 && abs(p.y) <= 1.0;
    return select(vec4<f32>(0.0, 0.0, 0.0, 1.0), color, inside);
}
`

// CompileDistortionShader compiles the lens distortion program to SPIR-V
// words.
func CompileDistortionShader() ([]uint32, error) {
	spirvBytes, err := naga.Compile(distortionShaderSource)
	if err != nil {
		return nil, fmt.Errorf("device: compile distortion shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// Uniforms returns the lens uniform block laid out as the shader's Lens
// struct: the coefficients followed by the scale.
func (d Distortion) Uniforms() [8]float32 {
	return [8]float32{
		float32(d.K[0]), float32(d.K[1]), float32(d.K[2]), float32(d.K[3]),
		float32(d.Scale), 0, 0, 0,
	}
}

// NewDistortionShader compiles the distortion program and creates a shader
// module on device.
func NewDistortionShader(device hal.Device) (hal.ShaderModule, error) {
	if device == nil {
		return nil, fmt.Errorf("device: distortion shader: nil device")
	}
	words, err := CompileDistortionShader()
	if err != nil {
		return nil, err
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: "hmd_distortion_shader",
		Source: hal.ShaderSource{
			SPIRV: words,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("device: create distortion shader module: %w", err)
	}
	return module, nil
}
