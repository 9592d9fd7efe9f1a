package kinematics

import "github.com/go-gl/mathgl/mgl64"

// FKSolver evaluates forward kinematics over a chain.
type FKSolver struct {
	chain *Chain
}

func NewFKSolver(chain *Chain) *FKSolver {
	return &FKSolver{chain: chain}
}

// JntToFrame composes origin and joint motion for every joint, base to tip.
func (s *FKSolver) JntToFrame(q []float64) (mgl64.Mat4, error) {
	if err := checkJointCount(s.chain, q); err != nil {
		return mgl64.Mat4{}, err
	}

	frame := mgl64.Ident4()
	i := 0
	for _, j := range s.chain.joints {
		frame = frame.Mul4(j.Origin)
		if !j.Movable() {
			continue
		}
		frame = frame.Mul4(j.motion(q[i]))
		i++
	}
	return frame, nil
}

// JntToCart returns the tip pose for joint vector q.
func (s *FKSolver) JntToCart(q []float64) (Pose, error) {
	frame, err := s.JntToFrame(q)
	if err != nil {
		return Pose{}, err
	}
	return PoseFromFrame(frame), nil
}
