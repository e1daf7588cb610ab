package db

import (
	"context"
	"errors"
	"time"

	"github.com/cnv192/Auto-ShoppeAffilate-sub002/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const accountCollection = "accounts"

var ErrAccountNotFound = errors.New("account not found")

type AccountStore interface {
	Get(ctx context.Context, id string) (*model.Account, error)
	List(ctx context.Context) ([]*model.Account, error)
	UpdateHealth(ctx context.Context, id string, health model.HealthStatus) error
	UpdateTokenStatus(ctx context.Context, id string, status model.TokenStatus) error
}

type mongoAccountStore struct {
	sess *Session
}

func NewAccountStore(sess *Session) AccountStore {
	return &mongoAccountStore{sess: sess}
}

func (stor *mongoAccountStore) collection() (*mongo.Collection, error) {
	return stor.sess.Collection(accountCollection)
}
func (stor *mongoAccountStore) Get(ctx context.Context, id string) (*model.Account, error) {
	col, err := stor.collection()
	if err != nil {
		return nil, err
	}
	var account model.Account
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}
func (stor *mongoAccountStore) List(ctx context.Context) ([]*model.Account, error) {
	col, err := stor.collection()
	if err != nil {
		return nil, err
	}
	cursor, err := col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var accounts []*model.Account
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}
func (stor *mongoAccountStore) UpdateHealth(ctx context.Context, id string, health model.HealthStatus) error {
	col, err := stor.collection()
	if err != nil {
		return err
	}
	r, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"healthStatus":  health,
		"lastCheckedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if r.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}
func (stor *mongoAccountStore) UpdateTokenStatus(ctx context.Context, id string, status model.TokenStatus) error {
	col, err := stor.collection()
	if err != nil {
		return err
	}
	r, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"tokenStatus":   status,
		"lastCheckedAt": time.Now(),
	}})
	if err != nil {
		return err
	}
	if r.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}
