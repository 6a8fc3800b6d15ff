// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"context"
	"image"
	"sync"

	"github.com/gogpu/hmd"
	"github.com/gogpu/hmd/target"
)

// debugSession is the software stand-in for a headset. Its pose is
// whatever was last set, identity by default.
type debugSession struct {
	info Info

	mu   sync.Mutex
	pose hmd.HeadPose

	mirror  *Mirror
	skipped bool

	pass *DistortionPass
}

func newDebugSession(opts Options) (*debugSession, error) {
	s := &debugSession{info: DebugInfo(), pose: hmd.IdentityPose()}
	if opts.Mirror {
		size := opts.MirrorSize
		if !size.Valid() {
			size = hmd.Sz(s.info.Resolution.Width/2, s.info.Resolution.Height/2)
		}
		s.mirror = NewMirror(size, s.info.Lens)
	}
	if opts.HALDevice != nil {
		pass, err := NewDistortionPass(opts.HALDevice, opts.HALQueue, s.info.Lens, s.info.NativeEyeSize())
		if err != nil {
			return nil, err
		}
		s.pass = pass
	}
	return s, nil
}

func (s *debugSession) Info() Info { return s.info }

func (s *debugSession) Pose() hmd.HeadPose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pose
}

func (s *debugSession) setPose(p hmd.HeadPose) {
	s.mu.Lock()
	s.pose = p
	s.mu.Unlock()
}

// Submit composites the eye surfaces. Texture surfaces go through the
// GPU distortion pass when one was built; with mirroring enabled CPU
// surfaces compose the preview. Anything else is dropped with a single
// debug log.
func (s *debugSession) Submit(ctx context.Context, left, right target.Surface) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if lt, rt, ok := textureSurfaces(left, right); ok {
		if s.pass == nil {
			s.skip("no distortion pass for texture surfaces")
			return nil
		}
		return s.pass.Encode(lt, rt)
	}
	if s.mirror == nil {
		return nil
	}
	l, lok := cpuImage(left)
	r, rok := cpuImage(right)
	if !lok || !rok {
		s.skip("mirror needs CPU surfaces for both eyes")
		return nil
	}
	s.mirror.Compose(l, r)
	return nil
}

func (s *debugSession) skip(reason string) {
	s.mu.Lock()
	logged := s.skipped
	s.skipped = true
	s.mu.Unlock()
	if !logged {
		hmd.Logger().Debug("device: debug submit dropped", "reason", reason)
	}
}

func textureSurfaces(left, right target.Surface) (l, r *target.TextureSurface, ok bool) {
	l, lok := left.(*target.TextureSurface)
	r, rok := right.(*target.TextureSurface)
	if !lok || !rok || l == nil || r == nil {
		return nil, nil, false
	}
	return l, r, true
}

func cpuImage(s target.Surface) (image.Image, bool) {
	ps, ok := s.(*target.PixmapSurface)
	if !ok || ps == nil {
		return nil, false
	}
	return ps.Image(), true
}

func (s *debugSession) Close() error {
	if s.pass != nil {
		s.pass.Destroy()
		s.pass = nil
	}
	return nil
}
