// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/target"
)

// lensUniformSize is the byte size of the shader's Lens struct.
const lensUniformSize = 32

// DistortionPass composites eye textures onto per-eye panel textures
// through the lens model on a wgpu HAL device. Each eye is one
// full-screen triangle sampling the eye image at the warped coordinate.
//
// The pass does not own the device or queue.
type DistortionPass struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
	size   hmd.Size

	shader     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler
	uniforms   hal.Buffer

	panels [hmd.EyeCount]panelTexture
	passes uint64
}

type panelTexture struct {
	texture hal.Texture
	view    hal.TextureView
}

// NewDistortionPass compiles the distortion program and builds the render
// pipeline, lens uniforms and one panel texture of size per eye.
func NewDistortionPass(device hal.Device, queue hal.Queue, lens Distortion, size hmd.Size) (*DistortionPass, error) {
	if device == nil || queue == nil {
		return nil, errors.New("device: distortion pass: nil device or queue")
	}
	if !size.Valid() {
		return nil, fmt.Errorf("device: distortion pass: invalid panel size %v", size)
	}
	p := &DistortionPass{
		device: device,
		queue:  queue,
		format: gputypes.TextureFormatRGBA8Unorm,
		size:   size,
	}
	if err := p.createPipeline(); err != nil {
		p.Destroy()
		return nil, err
	}
	if err := p.createUniforms(lens); err != nil {
		p.Destroy()
		return nil, err
	}
	for _, eye := range hmd.Eyes {
		if err := p.createPanel(eye); err != nil {
			p.Destroy()
			return nil, err
		}
	}
	return p, nil
}

func (p *DistortionPass) createPipeline() error {
	shader, err := NewDistortionShader(p.device)
	if err != nil {
		return err
	}
	p.shader = shader

	// Binding 0: Lens uniforms (fragment)
	// Binding 1: eye texture (fragment)
	// Binding 2: sampler (fragment)
	layout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "hmd_distortion_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("device: create distortion bind group layout: %w", err)
	}
	p.layout = layout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "hmd_distortion_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.layout},
	})
	if err != nil {
		return fmt.Errorf("device: create distortion pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "hmd_distortion_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("device: create distortion sampler: %w", err)
	}
	p.sampler = sampler

	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "hmd_distortion_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    p.format,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("device: create distortion pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

func (p *DistortionPass) createUniforms(lens Distortion) error {
	buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "hmd_distortion_lens",
		Size:  lensUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("device: create lens uniform buffer: %w", err)
	}
	p.uniforms = buf
	if err := p.queue.WriteBuffer(buf, 0, lensUniformBytes(lens)); err != nil {
		return fmt.Errorf("device: write lens uniforms: %w", err)
	}
	return nil
}

// lensUniformBytes packs Distortion.Uniforms little-endian.
func lensUniformBytes(lens Distortion) []byte {
	u := lens.Uniforms()
	buf := make([]byte, lensUniformSize)
	for i, v := range u {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func (p *DistortionPass) createPanel(eye hmd.Eye) error {
	//nolint:gosec // G115: size validated positive
	w, h := uint32(p.size.Width), uint32(p.size.Height)
	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "hmd_panel_" + eye.String(),
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        p.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("device: create %s panel texture: %w", eye, err)
	}
	view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "hmd_panel_" + eye.String() + "_view",
	})
	if err != nil {
		p.device.DestroyTexture(tex)
		return fmt.Errorf("device: create %s panel view: %w", eye, err)
	}
	p.panels[eye] = panelTexture{texture: tex, view: view}
	return nil
}

// Panel returns the texture holding eye's last distorted image.
func (p *DistortionPass) Panel(eye hmd.Eye) hal.Texture {
	if !eye.Valid() {
		return nil
	}
	return p.panels[eye].texture
}

// Passes returns the number of completed Encode calls.
func (p *DistortionPass) Passes() uint64 {
	return p.passes
}

// Encode distorts both eye surfaces onto the panels and waits for the
// GPU to finish.
func (p *DistortionPass) Encode(left, right *target.TextureSurface) error {
	if p.pipeline == nil {
		return errors.New("device: distortion pass destroyed")
	}
	sources := [hmd.EyeCount]*target.TextureSurface{left, right}

	var groups []hal.BindGroup
	defer func() {
		for _, g := range groups {
			p.device.DestroyBindGroup(g)
		}
	}()
	for _, eye := range hmd.Eyes {
		src := sources[eye]
		if src == nil || src.View() == nil {
			return fmt.Errorf("device: distortion pass: %s eye has no texture", eye)
		}
		group, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  "hmd_distortion_" + eye.String(),
			Layout: p.layout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{
					Buffer: p.uniforms.NativeHandle(), Offset: 0, Size: lensUniformSize,
				}},
				{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: src.View().NativeHandle()}},
				{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
			},
		})
		if err != nil {
			return fmt.Errorf("device: create %s distortion bind group: %w", eye, err)
		}
		groups = append(groups, group)
	}

	encoder, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "hmd_distortion_encoder"})
	if err != nil {
		return fmt.Errorf("device: create distortion encoder: %w", err)
	}
	if err := encoder.BeginEncoding("hmd_distortion"); err != nil {
		encoder.Destroy()
		return fmt.Errorf("device: begin distortion encoding: %w", err)
	}

	for _, eye := range hmd.Eyes {
		src := sources[eye].Texture()
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: src,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageTextureBinding,
			},
		}})
		rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "hmd_distortion_" + eye.String(),
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       p.panels[eye].view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
			}},
		})
		rp.SetPipeline(p.pipeline)
		rp.SetBindGroup(0, groups[eye], nil)
		rp.Draw(3, 1, 0, 0)
		rp.End()
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: src,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageTextureBinding,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}})
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		encoder.Destroy()
		return fmt.Errorf("device: end distortion encoding: %w", err)
	}
	defer p.device.FreeCommandBuffer(cmdBuf)

	if _, err := p.queue.Submit([]hal.CommandBuffer{cmdBuf}); err != nil {
		return fmt.Errorf("device: submit distortion pass: %w", err)
	}
	if err := p.device.WaitIdle(); err != nil {
		return fmt.Errorf("device: wait for distortion pass: %w", err)
	}
	p.passes++
	return nil
}

// Destroy releases every GPU resource the pass created. Safe to call
// more than once.
func (p *DistortionPass) Destroy() {
	for i := range p.panels {
		if p.panels[i].view != nil {
			p.device.DestroyTextureView(p.panels[i].view)
		}
		if p.panels[i].texture != nil {
			p.device.DestroyTexture(p.panels[i].texture)
		}
		p.panels[i] = panelTexture{}
	}
	if p.uniforms != nil {
		p.device.DestroyBuffer(p.uniforms)
		p.uniforms = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.layout != nil {
		p.device.DestroyBindGroupLayout(p.layout)
		p.layout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
