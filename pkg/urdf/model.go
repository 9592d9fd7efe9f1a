// Package urdf builds kinematic chains from Unified Robot Description Format
// documents.
package urdf

import (
	"encoding/xml"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/open-teleop/invkin/pkg/kinematics"
)

// Model holds the subset of a URDF document needed to build a chain.
type Model struct {
	XMLName xml.Name `xml:"robot"`
	Name    string   `xml:"name,attr"`
	Links   []link   `xml:"link"`
	Joints  []joint  `xml:"joint"`
}

type link struct {
	Name string `xml:"name,attr"`
}

type joint struct {
	Name   string  `xml:"name,attr"`
	Type   string  `xml:"type,attr"`
	Parent frame   `xml:"parent"`
	Child  frame   `xml:"child"`
	Origin *origin `xml:"origin"`
	Axis   *axis   `xml:"axis"`
	Limit  *limit  `xml:"limit"`
}

type frame struct {
	Link string `xml:"link,attr"`
}

type origin struct {
	XYZ string `xml:"xyz,attr"`
	RPY string `xml:"rpy,attr"`
}

type axis struct {
	XYZ string `xml:"xyz,attr"`
}

type limit struct {
	Lower float64 `xml:"lower,attr"`
	Upper float64 `xml:"upper,attr"`
}

// Parse decodes a URDF document.
func Parse(doc []byte) (*Model, error) {
	m := &Model{}
	if err := xml.Unmarshal(doc, m); err != nil {
		return nil, errors.Wrapf(kinematics.ErrModelLoad, "failed to parse URDF: %v", err)
	}
	return m, nil
}

// LoadChain parses doc and extracts the chain from base to tip.
func LoadChain(doc []byte, base, tip string) (*kinematics.Chain, error) {
	m, err := Parse(doc)
	if err != nil {
		return nil, err
	}
	return m.Chain(base, tip)
}

// LoadChainFile reads a URDF file from disk and extracts the chain from base
// to tip.
func LoadChainFile(path, base, tip string) (*kinematics.Chain, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(kinematics.ErrModelLoad, "failed to read robot description '%s': %v", path, err)
	}
	return LoadChain(doc, base, tip)
}

// Chain walks parent links from tip up to base and returns the joints on that
// path in base-to-tip order. Fails with kinematics.ErrModelLoad when tip is
// not a descendant of base.
func (m *Model) Chain(base, tip string) (*kinematics.Chain, error) {
	known := make(map[string]bool, len(m.Links))
	for _, l := range m.Links {
		known[l.Name] = true
	}
	if !known[base] {
		return nil, errors.Wrapf(kinematics.ErrModelLoad, "base link %q not found in model %q", base, m.Name)
	}
	if !known[tip] {
		return nil, errors.Wrapf(kinematics.ErrModelLoad, "tip link %q not found in model %q", tip, m.Name)
	}

	byChild := make(map[string]joint, len(m.Joints))
	for _, j := range m.Joints {
		byChild[j.Child.Link] = j
	}

	var path []joint
	for current := tip; current != base; {
		j, ok := byChild[current]
		if !ok {
			return nil, errors.Wrapf(kinematics.ErrModelLoad, "no chain from %q to %q", base, tip)
		}
		path = append(path, j)
		current = j.Parent.Link
		if len(path) > len(m.Joints) {
			return nil, errors.Wrapf(kinematics.ErrModelLoad, "cycle in model %q at link %q", m.Name, current)
		}
	}

	joints := make([]kinematics.Joint, 0, len(path))
	for i := len(path) - 1; i >= 0; i-- {
		kj, err := path[i].toJoint()
		if err != nil {
			return nil, errors.Wrapf(kinematics.ErrModelLoad, "joint %q: %v", path[i].Name, err)
		}
		joints = append(joints, kj)
	}

	chain, err := kinematics.NewChain(base, tip, joints)
	if err != nil {
		return nil, errors.Wrapf(kinematics.ErrModelLoad, "%v", err)
	}
	return chain, nil
}

func (j joint) toJoint() (kinematics.Joint, error) {
	jointType, err := kinematics.ParseJointType(j.Type)
	if err != nil {
		return kinematics.Joint{}, err
	}

	originFrame := mgl64.Ident4()
	if j.Origin != nil {
		xyz, err := parseVector(j.Origin.XYZ)
		if err != nil {
			return kinematics.Joint{}, errors.Wrap(err, "origin xyz")
		}
		rpy, err := parseVector(j.Origin.RPY)
		if err != nil {
			return kinematics.Joint{}, errors.Wrap(err, "origin rpy")
		}
		originFrame = kinematics.OriginFrame(xyz, rpy.X, rpy.Y, rpy.Z)
	}

	// URDF default axis
	ax := r3.Vector{X: 1}
	if j.Axis != nil && strings.TrimSpace(j.Axis.XYZ) != "" {
		if ax, err = parseVector(j.Axis.XYZ); err != nil {
			return kinematics.Joint{}, errors.Wrap(err, "axis xyz")
		}
	}

	kj := kinematics.Joint{
		Name:   j.Name,
		Type:   jointType,
		Parent: j.Parent.Link,
		Child:  j.Child.Link,
		Origin: originFrame,
		Axis:   mgl64.Vec3{ax.X, ax.Y, ax.Z},
	}
	switch jointType {
	case kinematics.Revolute, kinematics.Prismatic:
		if j.Limit == nil {
			return kinematics.Joint{}, errors.Errorf("%s joint requires a limit element", jointType)
		}
		kj.Limits = &kinematics.Limits{Lower: j.Limit.Lower, Upper: j.Limit.Upper}
	}
	return kj, nil
}

// parseVector reads a space-delimited triple. An empty string is the zero vector.
func parseVector(s string) (r3.Vector, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return r3.Vector{}, nil
	}
	if len(fields) != 3 {
		return r3.Vector{}, errors.Errorf("expected 3 values, got %d in %q", len(fields), s)
	}
	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "bad value %q", f)
		}
		v[i] = x
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}
