// Package cache provides named, lock protected cache directories with
// run-once initialization.
//
// A cache lives at <root>/<name>. Opening it takes an exclusive file lock on
// <root>/<name>/<name>.lock, which is held until the returned Cache is
// closed. The lock is an flock(2) style lock, so it excludes other processes
// as well as other goroutines of the same process.
//
// The first Open of a cache runs its initializer and then writes a
// cache.properties marker. Every later Open sees the marker and skips the
// initializer. Because the lock is held for the whole acquisition, a
// concurrent opener waits until the initializer is done and never observes
// a half written file.
//
//	c, err := cache.NewFactory(root).
//		Builder("cc-keystore").
//		WithInitializer(func(c *cache.Cache) error { return create(c.BaseDir()) }).
//		Open(ctx)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
package cache
