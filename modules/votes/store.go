package votes

import (
	"time"

	"github.com/teamraj/votebot/api/database"
	"gorm.io/gorm/clause"
)

// dbStore backs the ledger with the shared MySQL database so open posts
// and their voters survive a restart.
type dbStore struct{}

func NewDBStore() (Store, error) {
	db, err := database.Get()
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&VotePost{}, &VoteRecord{})
	if err != nil {
		return nil, err
	}

	return &dbStore{}, nil
}

func (*dbStore) SavePost(post PostKey, frozen bool) error {
	db, err := database.Get()
	if err != nil {
		return err
	}

	row := &VotePost{ChannelId: post.ChannelId, MessageId: post.MessageId, Frozen: frozen}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"frozen"}),
	}).Create(row).Error
}

func (*dbStore) SaveVote(post PostKey, userId string, castAt time.Time) error {
	db, err := database.Get()
	if err != nil {
		return err
	}

	row := &VoteRecord{ChannelId: post.ChannelId, MessageId: post.MessageId, UserId: userId, CastAt: castAt}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "message_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(row).Error
}

func (*dbStore) DeleteVote(post PostKey, userId string) error {
	db, err := database.Get()
	if err != nil {
		return err
	}

	// Hard delete; the unique index must not trip over a soft-deleted row
	// when the user rejoins and votes again.
	where := &VoteRecord{ChannelId: post.ChannelId, MessageId: post.MessageId, UserId: userId}
	return db.Unscoped().Where(where).Delete(&VoteRecord{}).Error
}

// StoredPost is a post and its voters as loaded from the database.
type StoredPost struct {
	Post   PostKey
	Frozen bool
	Voters map[string]time.Time
}

// LoadState reads every persisted post and vote for replay into the
// in-memory ledger on startup.
func LoadState() ([]StoredPost, error) {
	db, err := database.Get()
	if err != nil {
		return nil, err
	}

	var posts []VotePost
	err = db.Find(&posts).Error
	if err != nil {
		return nil, err
	}

	var records []VoteRecord
	err = db.Find(&records).Error
	if err != nil {
		return nil, err
	}

	byPost := make(map[PostKey]*StoredPost, len(posts))
	result := make([]StoredPost, 0, len(posts))
	for _, p := range posts {
		key := PostKey{ChannelId: p.ChannelId, MessageId: p.MessageId}
		result = append(result, StoredPost{Post: key, Frozen: p.Frozen, Voters: make(map[string]time.Time)})
		byPost[key] = &result[len(result)-1]
	}

	for _, r := range records {
		key := PostKey{ChannelId: r.ChannelId, MessageId: r.MessageId}
		sp := byPost[key]
		if sp == nil {
			// vote without a tracked post, likely a post deleted by hand
			continue
		}
		sp.Voters[r.UserId] = r.CastAt
	}

	return result, nil
}
