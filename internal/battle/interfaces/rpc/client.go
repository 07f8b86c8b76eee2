package rpc

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"Warfront/internal/battle/engagement"
	"Warfront/modules/kit/errx"
)

const defaultForwardTimeout = 2 * time.Second

// Client 访问权威节点；副本用它转发指令与拉取快照。
type Client struct {
	conn    grpc.ClientConnInterface
	timeout time.Duration
}

func NewClient(conn grpc.ClientConnInterface, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultForwardTimeout
	}
	return &Client{conn: conn, timeout: timeout}
}

// Forward 实现 engagement.Forwarder。
func (c *Client) Forward(ctx context.Context, cmd engagement.Command) error {
	body, err := json.Marshal(cmd)
	if err != nil {
		return errx.ErrReqParam.WithCause(err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, methodForward, wrapperspb.Bytes(body), out); err != nil {
		return fromStatus(err)
	}
	return nil
}

// Snapshots 拉取快照，id 为 0 时返回全部战斗。
func (c *Client) Snapshots(ctx context.Context, id engagement.BattleID) ([]engagement.Snapshot, error) {
	body, err := json.Marshal(snapshotsRequest{Battle: id})
	if err != nil {
		return nil, errx.ErrReqParam.WithCause(err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, methodSnapshots, wrapperspb.Bytes(body), out); err != nil {
		return nil, fromStatus(err)
	}
	var snaps []engagement.Snapshot
	if len(out.GetValue()) > 0 {
		if err := json.Unmarshal(out.GetValue(), &snaps); err != nil {
			return nil, errx.ErrInternal.WithCause(err)
		}
	}
	return snaps, nil
}
