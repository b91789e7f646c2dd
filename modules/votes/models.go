package votes

import (
	"time"

	"gorm.io/gorm"
)

type VotePost struct {
	gorm.Model
	ChannelId string `gorm:"uniqueIndex:post_idx"`
	MessageId string `gorm:"uniqueIndex:post_idx"`
	Frozen    bool
}

type VoteRecord struct {
	gorm.Model
	ChannelId string `gorm:"uniqueIndex:vote_idx"`
	MessageId string `gorm:"uniqueIndex:vote_idx"`
	UserId    string `gorm:"uniqueIndex:vote_idx"`
	CastAt    time.Time
}
