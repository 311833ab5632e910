package rest

import (
	"github.com/marcopiovanello/songify/server/archive"
	"github.com/marcopiovanello/songify/server/batch"
	"github.com/marcopiovanello/songify/server/config"
	"github.com/marcopiovanello/songify/server/internal"
	"github.com/marcopiovanello/songify/server/internal/kv"
)

// Batcher starts and cancels batches, implemented by rpc.Service so that
// batches started over REST are pushed to the websocket listeners too.
type Batcher interface {
	Start(url string) (*batch.Handle, error)
	Cancel()
	Current() (internal.BatchSnapshot, bool)
}

type ContainerArgs struct {
	Batcher Batcher
	Store   *kv.Store
	Archive *archive.Repository
	Config  *config.Config
}
