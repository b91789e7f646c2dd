//go:build votes || all
// +build votes all

package modules

import "github.com/teamraj/votebot/modules/votes"

func init() {
	Add(&votes.Module{})
}
