package slackbridge

import (
	"context"
	"sync"
	"time"

	"github.com/alexandre-normand/chatrelay"
	"github.com/alexandre-normand/chatrelay/schedule"
	lru "github.com/hashicorp/golang-lru"
	"github.com/marcsantiago/gocron"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
)

const (
	pageSize           = 200
	defaultLoadTimeout = 30 * time.Second
	unknownPrefix      = "unknown:"
)

// Identity is what the directory knows about a user
type Identity struct {
	ID        string
	Name      string
	RealName  string
	AvatarURL string
}

// DirectoryLoader is implemented by any value that loads users, channels and channel members from slack
type DirectoryLoader interface {
	LoadUsers(ctx context.Context) (users []Identity, err error)

	// LoadChannels returns the channel names by id
	LoadChannels(ctx context.Context) (channels map[string]string, err error)

	LoadMembers(ctx context.Context, channelID string) (userIDs []string, err error)
}

// Directory holds cached users, channels and channel members. On a cache miss, the directory is reloaded
// from slack once and a placeholder is returned if the entry still isn't found. Channels that are still
// missing after a reload, and channels whose members fail to load, aren't looked up again until the next Refresh
type Directory struct {
	loader      DirectoryLoader
	logger      chatrelay.SLogger
	loadTimeout time.Duration

	users    *lru.ARCCache
	channels *lru.ARCCache
	members  *lru.ARCCache

	usersMu         sync.Mutex
	channelsMu      sync.Mutex
	missingChannels map[string]bool
}

// membersUnavailable marks a channel whose members failed to load
type membersUnavailable struct{}

// NewDirectory creates a new directory caching up to cacheSize entries of each kind
func NewDirectory(cacheSize int, loader DirectoryLoader, logger chatrelay.SLogger) (d *Directory, err error) {
	d = new(Directory)
	d.loader = loader
	d.logger = logger
	d.loadTimeout = defaultLoadTimeout
	d.missingChannels = make(map[string]bool)

	if d.users, err = lru.NewARC(cacheSize); err != nil {
		return nil, err
	}

	if d.channels, err = lru.NewARC(cacheSize); err != nil {
		return nil, err
	}

	if d.members, err = lru.NewARC(cacheSize); err != nil {
		return nil, err
	}

	return d, nil
}

// Lookup returns the identity of the user. The directory is reloaded once if the user isn't known yet
func (d *Directory) Lookup(userID string) (id Identity, found bool) {
	if id, found = d.cachedUser(userID); found {
		return id, true
	}

	d.usersMu.Lock()
	defer d.usersMu.Unlock()

	// Someone else might have reloaded while we were waiting
	if id, found = d.cachedUser(userID); found {
		return id, true
	}

	d.logger.Debugf("User [%s] not found in cache, reloading users from slack", userID)
	if err := d.loadUsers(); err != nil {
		d.logger.Printf("Error loading users: %v", err)
	}

	return d.cachedUser(userID)
}

// Resolve returns the identity of the user or a placeholder identity named after the user id
func (d *Directory) Resolve(userID string) (id Identity) {
	if id, found := d.Lookup(userID); found {
		return id
	}

	return Identity{ID: userID, Name: userID}
}

// UserName returns the name of the user or def if the user can't be found
func (d *Directory) UserName(userID string, def string) string {
	if id, found := d.Lookup(userID); found {
		return id.Name
	}

	return def
}

// ChannelName returns the name of the channel or def if the channel can't be found
func (d *Directory) ChannelName(channelID string, def string) string {
	if name, found := d.cachedChannel(channelID); found {
		return name
	}

	d.channelsMu.Lock()
	defer d.channelsMu.Unlock()

	if name, found := d.cachedChannel(channelID); found {
		return name
	}

	if d.missingChannels[channelID] {
		return def
	}

	d.logger.Debugf("Channel [%s] not found in cache, reloading channels from slack", channelID)
	if err := d.loadChannels(); err != nil {
		d.logger.Printf("Error loading channels: %v", err)
	}

	if name, found := d.cachedChannel(channelID); found {
		return name
	}

	d.missingChannels[channelID] = true

	return def
}

// Participants returns the names of the members of the channel. Nil is returned when they can't be loaded
func (d *Directory) Participants(channelID string) (names []string) {
	var ids []string

	if v, ok := d.members.Get(channelID); ok {
		if ids, ok = v.([]string); !ok {
			return nil
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), d.loadTimeout)
		defer cancel()

		loaded, err := d.loader.LoadMembers(ctx, channelID)
		if err != nil {
			d.logger.Printf("Error loading members of channel [%s]: %v", channelID, err)
			d.members.Add(channelID, membersUnavailable{})
			return nil
		}

		d.members.Add(channelID, loaded)
		ids = loaded
	}

	names = make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, d.UserName(id, unknownPrefix+id))
	}

	return names
}

// Refresh reloads users and channels and forgets channel members along with the channels known to be missing
func (d *Directory) Refresh() (err error) {
	d.usersMu.Lock()
	err = d.loadUsers()
	d.usersMu.Unlock()

	if err != nil {
		return err
	}

	d.channelsMu.Lock()
	err = d.loadChannels()
	d.missingChannels = make(map[string]bool)
	d.channelsMu.Unlock()

	d.members.Purge()

	return err
}

// ScheduleRefresh schedules a periodic refresh of the directory
func (d *Directory) ScheduleRefresh(s *gocron.Scheduler, sd schedule.ScheduleDefinition) (err error) {
	if err = schedule.Run(s, sd, d.refreshAndLog); err != nil {
		return errors.Wrap(err, "scheduling directory refresh")
	}

	d.logger.Debugf("Directory refresh scheduled [%s]", sd)

	return nil
}

func (d *Directory) refreshAndLog() {
	if err := d.Refresh(); err != nil {
		d.logger.Printf("Error refreshing directory: %v", err)
	}
}

func (d *Directory) cachedUser(userID string) (id Identity, found bool) {
	v, ok := d.users.Get(userID)
	if !ok {
		return id, false
	}

	id, found = v.(Identity)
	return id, found
}

func (d *Directory) cachedChannel(channelID string) (name string, found bool) {
	v, ok := d.channels.Get(channelID)
	if !ok {
		return "", false
	}

	name, found = v.(string)
	return name, found
}

// loadUsers must be called with usersMu held
func (d *Directory) loadUsers() (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.loadTimeout)
	defer cancel()

	users, err := d.loader.LoadUsers(ctx)
	if err != nil {
		return err
	}

	for _, u := range users {
		d.users.Add(u.ID, u)
	}

	return nil
}

// loadChannels must be called with channelsMu held
func (d *Directory) loadChannels() (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.loadTimeout)
	defer cancel()

	channels, err := d.loader.LoadChannels(ctx)
	if err != nil {
		return err
	}

	for id, name := range channels {
		d.channels.Add(id, name)
	}

	return nil
}

type apiLoader struct {
	api API
}

// NewAPILoader returns a DirectoryLoader loading from the slack api
func NewAPILoader(api API) DirectoryLoader {
	return apiLoader{api: api}
}

// LoadUsers implements DirectoryLoader
func (l apiLoader) LoadUsers(ctx context.Context) (users []Identity, err error) {
	su, err := l.api.GetUsersContext(ctx, slack.GetUsersOptionLimit(pageSize))
	if err != nil {
		return nil, errors.Wrap(err, "listing users")
	}

	users = make([]Identity, 0, len(su))
	for _, u := range su {
		if u.Deleted {
			continue
		}

		realName := u.RealName
		if realName == "" {
			realName = u.Profile.RealName
		}

		users = append(users, Identity{ID: u.ID, Name: u.Name, RealName: realName, AvatarURL: u.Profile.Image72})
	}

	return users, nil
}

// LoadChannels implements DirectoryLoader
func (l apiLoader) LoadChannels(ctx context.Context) (channels map[string]string, err error) {
	channels = make(map[string]string)

	cursor := ""
	for {
		page, next, err := l.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Cursor:          cursor,
			ExcludeArchived: true,
			Limit:           pageSize,
			Types:           []string{"public_channel", "private_channel"},
		})
		if err != nil {
			return nil, errors.Wrap(err, "listing channels")
		}

		for _, c := range page {
			channels[c.ID] = c.Name
		}

		if next == "" {
			return channels, nil
		}
		cursor = next
	}
}

// LoadMembers implements DirectoryLoader
func (l apiLoader) LoadMembers(ctx context.Context, channelID string) (userIDs []string, err error) {
	userIDs = make([]string, 0)

	cursor := ""
	for {
		page, next, err := l.api.GetUsersInConversationContext(ctx, &slack.GetUsersInConversationParameters{ChannelID: channelID, Cursor: cursor, Limit: pageSize})
		if err != nil {
			return nil, errors.Wrapf(err, "listing members of [%s]", channelID)
		}

		userIDs = append(userIDs, page...)
		if next == "" {
			return userIDs, nil
		}
		cursor = next
	}
}
