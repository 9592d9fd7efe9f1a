package control

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/open-teleop/invkin/domain/diagnostic"
	"github.com/open-teleop/invkin/pkg/kinematics"
	"github.com/open-teleop/invkin/pkg/log"
	"github.com/open-teleop/invkin/pkg/urdf"
)

var (
	homePosture = []float64{0, 1.57, 0, 1.57, 0, 0, 0}
	samplePose  = []float64{0.3, 0.5, -0.2, 1.0, 0.4, -0.6, 0.2}
)

func loadIiwa(t *testing.T) *kinematics.Chain {
	t.Helper()
	chain, err := urdf.LoadChainFile(filepath.Join("..", "..", "config", "lbr_iiwa.urdf"), "lbr_iiwa_link_0", "lbr_iiwa_link_7")
	require.NoError(t, err)
	return chain
}

func newTestLogger() (log.Logger, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return log.NewFromLogrus(l), hook
}

func newTestDiagnostics() *diagnostic.DiagnosticService {
	return diagnostic.NewDiagnosticService("test-run")
}

// fakePublisher records everything it is asked to send. When onCommand is
// set it is called outside the lock, which lets tests simulate a robot that
// follows its commands.
type fakePublisher struct {
	mu        sync.Mutex
	poses     []kinematics.Pose
	commands  [][]float64
	poseErr   error
	onCommand func(q []float64)
}

func (p *fakePublisher) PublishPose(pose kinematics.Pose) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.poses = append(p.poses, pose)
	return p.poseErr
}

func (p *fakePublisher) PublishJointCommands(q []float64) error {
	p.mu.Lock()
	p.commands = append(p.commands, append([]float64(nil), q...))
	cb := p.onCommand
	p.mu.Unlock()

	if cb != nil {
		cb(q)
	}
	return nil
}

func (p *fakePublisher) numCommands() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.commands)
}

func (p *fakePublisher) numPoses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.poses)
}

func (p *fakePublisher) lastPose() (kinematics.Pose, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.poses) == 0 {
		return kinematics.Pose{}, false
	}
	return p.poses[len(p.poses)-1], true
}

func (p *fakePublisher) lastCommand() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.commands) == 0 {
		return nil
	}
	return p.commands[len(p.commands)-1]
}

type fixedTrajectory kinematics.Pose

func (f fixedTrajectory) At(float64) kinematics.Pose { return kinematics.Pose(f) }
