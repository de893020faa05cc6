package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayane-t/mochimono/internal/apperr"
	"github.com/ayane-t/mochimono/internal/model"
)

// CreateRealm creates a sharing group owned by ownerID. The owner is
// materialized as an accepted member with the owner role, so a user
// never appears both implicitly and explicitly for the same realm.
func (s *Store) CreateRealm(ctx context.Context, name, description, ownerID string) (*model.Realm, error) {
	now := time.Now().UTC()
	r := &model.Realm{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO realms (id, name, description, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Description, r.OwnerID,
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to insert realm: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO members (id, realm_id, user_id, role, invited_at, accepted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), r.ID, ownerID, string(model.RoleOwner),
		now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit realm creation: %w", err)
	}

	s.logger.Info("realm created", "id", r.ID, "name", r.Name)
	return r, nil
}

// GetRealm returns the realm, or ok=false when none matches.
func (s *Store) GetRealm(ctx context.Context, id string) (*model.Realm, bool, error) {
	var (
		r                    model.Realm
		createdAt, updatedAt string
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, name, description, owner_id, created_at, updated_at
		 FROM realms WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &r.Description, &r.OwnerID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load realm %s: %w", id, err)
	}
	r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	r.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &r, true, nil
}

// ListRealms returns the realms where userID holds an accepted
// membership, newest first.
func (s *Store) ListRealms(ctx context.Context, userID string) ([]*model.Realm, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT r.id, r.name, r.description, r.owner_id, r.created_at, r.updated_at
		 FROM realms r
		 JOIN members m ON m.realm_id = r.id
		 WHERE m.user_id = ? AND m.accepted_at IS NOT NULL
		 ORDER BY r.updated_at DESC, r.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query realms: %w", err)
	}
	defer rows.Close()

	realms := []*model.Realm{}
	for rows.Next() {
		var (
			r                    model.Realm
			createdAt, updatedAt string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.OwnerID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan realm: %w", err)
		}
		r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		r.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		realms = append(realms, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating realms: %w", err)
	}
	return realms, nil
}

// Invite records a pending invitation for userID. Only an accepted
// owner of the realm may invite. Inviting an existing member is a
// no-op apart from a role refresh on a still-pending invitation;
// membership stays unique per (realm, user).
func (s *Store) Invite(ctx context.Context, actorID, realmID, userID string, role model.Role) (*model.Member, error) {
	if !role.Valid() {
		return nil, apperr.Validationf("role", "unknown value %q", role)
	}
	if err := s.requireOwner(ctx, realmID, actorID, "invite members"); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &model.Member{
		ID:        uuid.NewString(),
		RealmID:   realmID,
		UserID:    userID,
		Role:      role,
		InvitedAt: now,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	// Deduplication by (realm_id, user_id) is enforced here, not left
	// to callers. An accepted membership keeps its role and timestamp.
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO members (id, realm_id, user_id, role, invited_at, accepted_at)
		 VALUES (?, ?, ?, ?, ?, NULL)
		 ON CONFLICT(realm_id, user_id) DO UPDATE SET
			role = CASE WHEN members.accepted_at IS NULL THEN excluded.role ELSE members.role END`,
		m.ID, m.RealmID, m.UserID, string(m.Role), now.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert membership: %w", err)
	}

	return s.getMember(ctx, realmID, userID)
}

// Accept marks the pending invitation for userID as accepted.
// Accepting an already-accepted membership is a no-op.
func (s *Store) Accept(ctx context.Context, realmID, userID string) (*model.Member, error) {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE members SET accepted_at = ?
		 WHERE realm_id = ? AND user_id = ? AND accepted_at IS NULL`,
		time.Now().UTC().Format(timeLayout), realmID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish "already accepted" from "never invited".
		if m, err := s.getMember(ctx, realmID, userID); err == nil {
			return m, nil
		}
		return nil, apperr.NotFound("member", userID+"@"+realmID)
	}
	return s.getMember(ctx, realmID, userID)
}

// RemoveMember deletes a membership. Only an accepted owner may
// remove members, and the realm's owning user cannot be removed.
func (s *Store) RemoveMember(ctx context.Context, actorID, realmID, userID string) error {
	if err := s.requireOwner(ctx, realmID, actorID, "remove members"); err != nil {
		return err
	}

	r, ok, err := s.GetRealm(ctx, realmID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("realm", realmID)
	}
	if r.OwnerID == userID {
		return apperr.Unauthorized("remove the realm owner")
	}

	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM members WHERE realm_id = ? AND user_id = ?`, realmID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("member", userID+"@"+realmID)
	}
	return nil
}

// ListMembers returns all members of the realm, pending invitations
// included, ordered by invitation time.
func (s *Store) ListMembers(ctx context.Context, realmID string) ([]*model.Member, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, realm_id, user_id, role, invited_at, accepted_at
		 FROM members WHERE realm_id = ?
		 ORDER BY invited_at ASC, id ASC`, realmID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []*model.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

// DeleteRealm removes the realm, its memberships, and reverts its
// items to private, all in one transaction. Owner only.
func (s *Store) DeleteRealm(ctx context.Context, actorID, realmID string) error {
	if err := s.requireOwner(ctx, realmID, actorID, "delete the realm"); err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET realm_id = NULL, updated_at = ? WHERE realm_id = ?`,
		now, realmID); err != nil {
		return fmt.Errorf("failed to unshare realm items: %w", err)
	}

	// members follow via ON DELETE CASCADE.
	if _, err := tx.ExecContext(ctx, `DELETE FROM realms WHERE id = ?`, realmID); err != nil {
		return fmt.Errorf("failed to delete realm: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit realm deletion: %w", err)
	}

	s.logger.Info("realm deleted", "id", realmID)
	return nil
}

func (s *Store) getMember(ctx context.Context, realmID, userID string) (*model.Member, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, realm_id, user_id, role, invited_at, accepted_at
		 FROM members WHERE realm_id = ? AND user_id = ?`, realmID, userID)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("member", userID+"@"+realmID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	return m, nil
}

func scanMember(row rowScanner) (*model.Member, error) {
	var (
		m          model.Member
		role       string
		invitedAt  string
		acceptedAt sql.NullString
	)
	if err := row.Scan(&m.ID, &m.RealmID, &m.UserID, &role, &invitedAt, &acceptedAt); err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	m.InvitedAt, _ = time.Parse(timeLayout, invitedAt)
	if acceptedAt.Valid {
		if t, err := time.Parse(timeLayout, acceptedAt.String); err == nil {
			m.AcceptedAt = &t
		}
	}
	return &m, nil
}

// isAcceptedMember reports whether userID holds an accepted
// membership in realmID.
func (s *Store) isAcceptedMember(ctx context.Context, realmID, userID string) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members
		 WHERE realm_id = ? AND user_id = ? AND accepted_at IS NOT NULL`,
		realmID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return n > 0, nil
}

// requireOwner fails with an AuthorizationError unless actorID is an
// accepted owner of the realm.
func (s *Store) requireOwner(ctx context.Context, realmID, actorID, action string) error {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members
		 WHERE realm_id = ? AND user_id = ? AND role = ? AND accepted_at IS NOT NULL`,
		realmID, actorID, string(model.RoleOwner)).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to check ownership: %w", err)
	}
	if n == 0 {
		return apperr.Unauthorized(action)
	}
	return nil
}
