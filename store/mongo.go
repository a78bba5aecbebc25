package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/meinhoongagan/hospital-booking/models"
)

const scheduledSlotIndex = "scheduled_slot"

// Mongo stores users and appointments as documents. A partial unique index on
// (doctorId, date, time) filtered to scheduled appointments guards the slot.
type Mongo struct {
	client       *mongo.Client
	users        *mongo.Collection
	appointments *mongo.Collection
}

func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	dbh := client.Database(database)
	m := &Mongo{
		client:       client,
		users:        dbh.Collection("users"),
		appointments: dbh.Collection("appointments"),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "isActive", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}

	_, err = m.appointments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "date", Value: 1}, {Key: "time", Value: 1}},
			Options: options.Index().
				SetName(scheduledSlotIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.StatusScheduled}),
		},
		{Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("appointment indexes: %w", err)
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func mongoErr(err error, dup error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return dup
	}
	return err
}

func emailFilter(email string) bson.M {
	return bson.M{"email": bson.M{"$regex": "^" + regexp.QuoteMeta(email) + "$", "$options": "i"}}
}

func (m *Mongo) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	_, err := m.users.InsertOne(ctx, u)
	return mongoErr(err, ErrDuplicateEmail)
}

func (m *Mongo) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := m.users.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return mongoErr(err, ErrDuplicateEmail)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) UserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, mongoErr(err, err)
	}
	return &u, nil
}

func (m *Mongo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := m.users.FindOne(ctx, emailFilter(email)).Decode(&u); err != nil {
		return nil, mongoErr(err, err)
	}
	return &u, nil
}

func (m *Mongo) UsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := m.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (m *Mongo) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}

	total, err := m.users.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(f.Offset()))
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := m.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (m *Mongo) ListDoctors(ctx context.Context) ([]models.User, error) {
	cur, err := m.users.Find(ctx,
		bson.M{"role": models.RoleDoctor, "isActive": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var doctors []models.User
	if err := cur.All(ctx, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (m *Mongo) UserStats(ctx context.Context) (*models.UserStats, error) {
	cur, err := m.users.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$role"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Role  models.Role `bson:"_id"`
		Count int64       `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	stats := &models.UserStats{}
	for _, r := range rows {
		stats.TotalUsers += r.Count
		switch r.Role {
		case models.RoleDoctor:
			stats.TotalDoctors = r.Count
		case models.RolePatient:
			stats.TotalPatients = r.Count
		case models.RoleAdmin:
			stats.TotalAdmins = r.Count
		}
	}
	return stats, nil
}

func slotFilter(doctorID string, date time.Time, slot, excludeID string) bson.M {
	filter := bson.M{
		"doctorId": doctorID,
		"date":     date,
		"time":     slot,
		"status":   models.StatusScheduled,
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	return filter
}

func (m *Mongo) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	a.Prepare()
	taken, err := m.SlotTaken(ctx, a.DoctorID, a.Date, a.Time, "")
	if err != nil {
		return err
	}
	if taken && a.Status == models.StatusScheduled {
		return ErrSlotTaken
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err = m.appointments.InsertOne(ctx, a)
	return mongoErr(err, ErrSlotTaken)
}

func (m *Mongo) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := m.appointments.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return mongoErr(err, ErrSlotTaken)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) AppointmentByID(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	if err := m.appointments.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, mongoErr(err, err)
	}
	return &a, nil
}

func (m *Mongo) ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	filter := bson.M{}
	if f.PatientID != "" {
		filter["patientId"] = f.PatientID
	}
	if f.DoctorID != "" {
		filter["doctorId"] = f.DoctorID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Date != nil {
		filter["date"] = *f.Date
	}

	cur, err := m.appointments.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	var out []models.Appointment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Mongo) SlotTaken(ctx context.Context, doctorID string, date time.Time, slot, excludeID string) (bool, error) {
	n, err := m.appointments.CountDocuments(ctx, slotFilter(doctorID, date, slot, excludeID), options.Count().SetLimit(1))
	return n > 0, err
}

func (m *Mongo) AppointmentStats(ctx context.Context, doctorID string, today time.Time) (*models.AppointmentStats, error) {
	match := bson.M{}
	if doctorID != "" {
		match["doctorId"] = doctorID
	}

	cur, err := m.appointments.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Status models.AppointmentStatus `bson:"_id"`
		Count  int64                    `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	stats := emptyStats()
	for _, r := range rows {
		stats.ByStatus[r.Status] = r.Count
		stats.Total += r.Count
	}

	todayFilter := bson.M{"date": today}
	if doctorID != "" {
		todayFilter["doctorId"] = doctorID
	}
	stats.Today, err = m.appointments.CountDocuments(ctx, todayFilter)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
