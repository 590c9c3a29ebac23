package transformengines

import "github.com/nordlight/eventbridge/internal/circulator"

// Identity forwards every record unchanged. The circulator installs no
// engine by default; a runner that needs no transform is given Identity
// explicitly, as cmd/bridge does.
type Identity struct{}

func (Identity) DoTransforms(record circulator.ConnectRecord) (*circulator.ConnectRecord, error) {
	return &record, nil
}

func (Identity) TransformSize() int { return 1 }
