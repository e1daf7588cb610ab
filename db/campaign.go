package db

import (
	"context"
	"errors"
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/model"
	"github.com/cnv192/Auto-ShoppeAffilate-sub002/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const campaignCollection = "campaigns"

// activity log is capped, oldest entries roll off
const maxActivityLog = 200

var ErrCampaignNotFound = errors.New("campaign not found")

// CampaignStore reads campaigns and mutates them only through counter
// increments, capped log pushes and array-filtered per-target updates.
// Whole-document replace stays off the table so concurrent ticks cannot
// clobber each other.
type CampaignStore interface {
	Get(ctx context.Context, id string) (*model.Campaign, error)
	ListActive(ctx context.Context) ([]*model.Campaign, error)
	ListByAccount(ctx context.Context, accountId string) ([]*model.Campaign, error)
	SetStatus(ctx context.Context, id string, status model.CampaignStatus) error
	AppendLog(ctx context.Context, id string, entry model.ActivityLog) error
	EnsureTarget(ctx context.Context, id string, target model.TargetedTarget) error
	SetTargetStats(ctx context.Context, id, targetId string, stats model.TargetStats) error
	IncTargetActions(ctx context.Context, id, targetId string, success bool) error
	MarkTargetBlocked(ctx context.Context, id, targetId string) error
}

type mongoCampaignStore struct {
	sess *Session
}

func NewCampaignStore(sess *Session) CampaignStore {
	return &mongoCampaignStore{sess: sess}
}

func (stor *mongoCampaignStore) collection() (*mongo.Collection, error) {
	return stor.sess.Collection(campaignCollection)
}
func (stor *mongoCampaignStore) Get(ctx context.Context, id string) (*model.Campaign, error) {
	col, err := stor.collection()
	if err != nil {
		return nil, err
	}
	var campaign model.Campaign
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&campaign); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}
func (stor *mongoCampaignStore) list(ctx context.Context, filter bson.M) ([]*model.Campaign, error) {
	col, err := stor.collection()
	if err != nil {
		return nil, err
	}
	cursor, err := col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var campaigns []*model.Campaign
	if err := cursor.All(ctx, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}
func (stor *mongoCampaignStore) ListActive(ctx context.Context) ([]*model.Campaign, error) {
	return stor.list(ctx, bson.M{"status": model.CampaignActive})
}
func (stor *mongoCampaignStore) ListByAccount(ctx context.Context, accountId string) ([]*model.Campaign, error) {
	return stor.list(ctx, bson.M{"accountId": accountId})
}
func (stor *mongoCampaignStore) SetStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	col, err := stor.collection()
	if err != nil {
		return err
	}
	r, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if r.MatchedCount == 0 {
		return ErrCampaignNotFound
	}
	return nil
}
func (stor *mongoCampaignStore) AppendLog(ctx context.Context, id string, entry model.ActivityLog) error {
	col, err := stor.collection()
	if err != nil {
		return err
	}
	if entry.Id == "" {
		entry.Id = utils.NewXid()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"activityLog": bson.M{
			"$each":  bson.A{entry},
			"$slice": -maxActivityLog,
		}},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	return err
}

// EnsureTarget inserts the progress record once; a second call for the
// same target id is a no-op.
func (stor *mongoCampaignStore) EnsureTarget(ctx context.Context, id string, target model.TargetedTarget) error {
	col, err := stor.collection()
	if err != nil {
		return err
	}
	_, err = col.UpdateOne(ctx, bson.M{
		"_id":                       id,
		"targetedTargets.targetId": bson.M{"$ne": target.TargetId},
	}, bson.M{
		"$push": bson.M{"targetedTargets": target},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	return err
}
func (stor *mongoCampaignStore) SetTargetStats(ctx context.Context, id, targetId string, stats model.TargetStats) error {
	col, err := stor.collection()
	if err != nil {
		return err
	}
	_, err = col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"targetedTargets.$[t].stats": stats,
			"updatedAt":                  time.Now(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []any{bson.M{"t.targetId": targetId}},
		}))
	return err
}
func (stor *mongoCampaignStore) IncTargetActions(ctx context.Context, id, targetId string, success bool) error {
	col, err := stor.collection()
	if err != nil {
		return err
	}
	var now = time.Now()
	var inc = bson.M{"stats.totalSent": 1}
	if success {
		inc["stats.successCount"] = 1
		inc["targetedTargets.$[t].actionsSent"] = 1
	} else {
		inc["stats.failCount"] = 1
	}
	var set = bson.M{
		"updatedAt":                         now,
		"targetedTargets.$[t].lastActionAt": now,
	}
	_, err = col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": inc, "$set": set},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []any{bson.M{"t.targetId": targetId}},
		}))
	if err != nil {
		return err
	}
	if success {
		// firstActionAt only when unset
		_, err = col.UpdateOne(ctx,
			bson.M{"_id": id},
			bson.M{"$set": bson.M{"targetedTargets.$[t].firstActionAt": now}},
			options.Update().SetArrayFilters(options.ArrayFilters{
				Filters: []any{bson.M{
					"t.targetId":      targetId,
					"t.firstActionAt": bson.M{"$exists": false},
				}},
			}))
	}
	return err
}
func (stor *mongoCampaignStore) MarkTargetBlocked(ctx context.Context, id, targetId string) error {
	col, err := stor.collection()
	if err != nil {
		return err
	}
	_, err = col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"targetedTargets.$[t].isBlocked": true,
			"updatedAt":                      time.Now(),
		}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []any{bson.M{"t.targetId": targetId}},
		}))
	return err
}
