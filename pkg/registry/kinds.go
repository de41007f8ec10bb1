package registry

import (
	"github.com/deskflow/deskflow/pkg/nodes/assignteam"
	"github.com/deskflow/deskflow/pkg/nodes/choice"
	"github.com/deskflow/deskflow/pkg/nodes/end"
	"github.com/deskflow/deskflow/pkg/nodes/sendmessage"
	"github.com/deskflow/deskflow/pkg/nodes/trigger"
	"github.com/deskflow/deskflow/pkg/nodes/wait"
)

// RegisterDefaultKinds registers all built-in node kinds with the registry.
func (r *Registry) RegisterDefaultKinds() {
	// Trigger kinds
	r.Register(trigger.NewTicketCreatedKind())
	r.Register(trigger.NewDataChangedKind())
	r.Register(trigger.NewCustomerMessageKind())
	r.Register(trigger.NewUnresponsivenessKind())

	// Action kinds
	r.Register(end.NewKind())
	r.Register(sendmessage.NewKind())
	r.Register(choice.NewKind())
	r.Register(wait.NewKind())
	r.Register(assignteam.NewKind())
}
