package command

import "mini-heos/message"

const (
	RegisterForChangeEventsName = "system/register_for_change_events"
	AccountCheckName            = "system/check_account"
	SignInName                  = "system/sign_in"
	SignOutName                 = "system/sign_out"
	HeartBeatName               = "system/heart_beat"
	RebootName                  = "system/reboot"
)

// RegisterForChangeEvents turns unsolicited event frames on or off for the
// connection it is sent on.
type RegisterForChangeEvents struct {
	Enable message.OnOff
}

func (c RegisterForChangeEvents) Payload() Payload {
	return build(RegisterForChangeEventsName, "enable", c.Enable.String())
}

type AccountCheck struct{}

func (AccountCheck) Payload() Payload { return build(AccountCheckName) }

// SignIn passes credentials as plain arguments.
type SignIn struct {
	Username string
	Password string
}

func (c SignIn) Payload() Payload {
	return build(SignInName, "un", c.Username, "pw", c.Password)
}

type SignOut struct{}

func (SignOut) Payload() Payload { return build(SignOutName) }

type HeartBeat struct{}

func (HeartBeat) Payload() Payload { return build(HeartBeatName) }

type Reboot struct{}

func (Reboot) Payload() Payload { return build(RebootName) }
