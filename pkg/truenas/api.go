package truenas

import (
	"context"
	"fmt"
	"net/url"

	"github.com/forgeops/anvil/pkg/types"
)

// ServiceISCSI is the backend's identifier for the iSCSI target service.
const ServiceISCSI = "iscsitarget"

// Fixed access-group bindings by convention: the first portal and the
// first initiator group configured on the controller.
const (
	DefaultPortalID    = 1
	DefaultInitiatorID = 1
)

// DefaultBlockSize is the logical block size for created extents.
const DefaultBlockSize = 512

// SystemInfo is the subset of /system/info used for the connectivity probe.
type SystemInfo struct {
	Version  string `json:"version"`
	Hostname string `json:"hostname"`
	Uptime   string `json:"uptime"`
}

// rawSize models TrueNAS's {"parsed": N, "rawvalue": "..."} size encoding.
type rawSize struct {
	Parsed int64 `json:"parsed"`
}

type poolJSON struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Status  string `json:"status"`
	Free    int64  `json:"free"`
	Size    int64  `json:"size"`
}

type datasetJSON struct {
	ID      string  `json:"id"` // full path
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Volsize rawSize `json:"volsize"`
}

type targetJSON struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

type extentJSON struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Disk      string `json:"disk"`
	BlockSize int    `json:"blocksize"`
	RO        bool   `json:"ro"`
}

type targetExtentJSON struct {
	ID     int `json:"id"`
	Target int `json:"target"`
	Extent int `json:"extent"`
	LunID  int `json:"lunid"`
}

type serviceJSON struct {
	ID      int    `json:"id"`
	Service string `json:"service"`
	State   string `json:"state"`
}

// Ping fetches /system/info, serving as the connectivity and auth probe.
func (c *Client) Ping(ctx context.Context) (*SystemInfo, error) {
	var info SystemInfo
	if err := c.getJSON(ctx, "/system/info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Alerts returns the number of active alerts on the controller.
func (c *Client) Alerts(ctx context.Context) (int, error) {
	var alerts []map[string]interface{}
	if err := c.getJSON(ctx, "/alert/list", &alerts); err != nil {
		return 0, err
	}
	return len(alerts), nil
}

// ReportingData fetches raw reporting data; the discovery phase only
// records whether the endpoint responds.
func (c *Client) ReportingData(ctx context.Context) ([]byte, error) {
	_, body, err := c.Get(ctx, "/reporting/get_data")
	return body, err
}

// ListPools enumerates storage pools.
func (c *Client) ListPools(ctx context.Context) ([]types.Pool, error) {
	var raw []poolJSON
	if err := c.getJSON(ctx, "/pool", &raw); err != nil {
		return nil, err
	}
	pools := make([]types.Pool, 0, len(raw))
	for _, p := range raw {
		pools = append(pools, types.Pool{
			Name:       p.Name,
			FreeBytes:  p.Free,
			TotalBytes: p.Size,
			Healthy:    p.Healthy,
			Status:     p.Status,
		})
	}
	return pools, nil
}

// ListVolumes enumerates block volumes (datasets of type VOLUME).
func (c *Client) ListVolumes(ctx context.Context) ([]types.Zvol, error) {
	var raw []datasetJSON
	if err := c.getJSON(ctx, "/pool/dataset?type=VOLUME", &raw); err != nil {
		return nil, err
	}
	vols := make([]types.Zvol, 0, len(raw))
	for _, d := range raw {
		vols = append(vols, types.Zvol{Path: d.ID, SizeBytes: d.Volsize.Parsed})
	}
	return vols, nil
}

// GetDataset looks up a dataset by its exact path. A nil result with nil
// error means the dataset does not exist.
func (c *Client) GetDataset(ctx context.Context, path string) (*types.Zvol, error) {
	var d datasetJSON
	err := c.getJSON(ctx, "/pool/dataset/id/"+url.PathEscape(path), &d)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &types.Zvol{Path: d.ID, SizeBytes: d.Volsize.Parsed}, nil
}

// CreateDataset creates a plain filesystem dataset (used for the parent
// directory chain above boot volumes).
func (c *Client) CreateDataset(ctx context.Context, path string) error {
	payload := map[string]interface{}{
		"name": path,
		"type": "FILESYSTEM",
	}
	return c.postJSON(ctx, "/pool/dataset", payload, nil)
}

// CreateZvol creates a block volume of the given size.
func (c *Client) CreateZvol(ctx context.Context, path string, sizeBytes int64) (*types.Zvol, error) {
	payload := map[string]interface{}{
		"name":    path,
		"type":    "VOLUME",
		"volsize": sizeBytes,
	}
	var d datasetJSON
	if err := c.postJSON(ctx, "/pool/dataset", payload, &d); err != nil {
		return nil, err
	}
	return &types.Zvol{Path: d.ID, SizeBytes: d.Volsize.Parsed}, nil
}

// ListTargets enumerates iSCSI targets.
func (c *Client) ListTargets(ctx context.Context) ([]types.Target, error) {
	var raw []targetJSON
	if err := c.getJSON(ctx, "/iscsi/target", &raw); err != nil {
		return nil, err
	}
	targets := make([]types.Target, 0, len(raw))
	for _, t := range raw {
		targets = append(targets, types.Target{ID: t.ID, Name: t.Name, Alias: t.Alias})
	}
	return targets, nil
}

// GetTarget looks up a target by ID. Nil result means not found.
func (c *Client) GetTarget(ctx context.Context, id int) (*types.Target, error) {
	var t targetJSON
	err := c.getJSON(ctx, fmt.Sprintf("/iscsi/target/id/%d", id), &t)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &types.Target{ID: t.ID, Name: t.Name, Alias: t.Alias}, nil
}

// CreateTarget creates an iSCSI target bound to the conventional portal
// and initiator groups.
func (c *Client) CreateTarget(ctx context.Context, iqn, alias string) (*types.Target, error) {
	payload := map[string]interface{}{
		"name":  iqn,
		"alias": alias,
		"mode":  "ISCSI",
		"groups": []map[string]interface{}{
			{
				"portal":     DefaultPortalID,
				"initiator":  DefaultInitiatorID,
				"auth":       nil,
				"authmethod": "NONE",
			},
		},
	}
	var t targetJSON
	if err := c.postJSON(ctx, "/iscsi/target", payload, &t); err != nil {
		return nil, err
	}
	return &types.Target{ID: t.ID, Name: t.Name, Alias: t.Alias}, nil
}

// DeleteTarget removes a target by ID.
func (c *Client) DeleteTarget(ctx context.Context, id int) error {
	_, _, err := c.Delete(ctx, fmt.Sprintf("/iscsi/target/id/%d", id))
	return err
}

// ListExtents enumerates iSCSI extents.
func (c *Client) ListExtents(ctx context.Context) ([]types.Extent, error) {
	var raw []extentJSON
	if err := c.getJSON(ctx, "/iscsi/extent", &raw); err != nil {
		return nil, err
	}
	extents := make([]types.Extent, 0, len(raw))
	for _, e := range raw {
		extents = append(extents, types.Extent{
			ID:        e.ID,
			Name:      e.Name,
			Disk:      e.Disk,
			BlockSize: e.BlockSize,
			ReadOnly:  e.RO,
		})
	}
	return extents, nil
}

// GetExtent looks up an extent by ID. Nil result means not found.
func (c *Client) GetExtent(ctx context.Context, id int) (*types.Extent, error) {
	var e extentJSON
	err := c.getJSON(ctx, fmt.Sprintf("/iscsi/extent/id/%d", id), &e)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &types.Extent{ID: e.ID, Name: e.Name, Disk: e.Disk, BlockSize: e.BlockSize, ReadOnly: e.RO}, nil
}

// CreateExtent creates a DISK extent backed by the given zvol path.
func (c *Client) CreateExtent(ctx context.Context, name, zvolPath string) (*types.Extent, error) {
	payload := map[string]interface{}{
		"name":      name,
		"type":      "DISK",
		"disk":      "zvol/" + zvolPath,
		"blocksize": DefaultBlockSize,
		"ro":        false,
	}
	var e extentJSON
	if err := c.postJSON(ctx, "/iscsi/extent", payload, &e); err != nil {
		return nil, err
	}
	return &types.Extent{ID: e.ID, Name: e.Name, Disk: e.Disk, BlockSize: e.BlockSize, ReadOnly: e.RO}, nil
}

// DeleteExtent removes an extent by ID.
func (c *Client) DeleteExtent(ctx context.Context, id int) error {
	_, _, err := c.Delete(ctx, fmt.Sprintf("/iscsi/extent/id/%d", id))
	return err
}

// ListTargetExtents enumerates target-extent associations.
func (c *Client) ListTargetExtents(ctx context.Context) ([]types.Association, error) {
	var raw []targetExtentJSON
	if err := c.getJSON(ctx, "/iscsi/targetextent", &raw); err != nil {
		return nil, err
	}
	assocs := make([]types.Association, 0, len(raw))
	for _, a := range raw {
		assocs = append(assocs, types.Association{
			ID:       a.ID,
			TargetID: a.Target,
			ExtentID: a.Extent,
			LUN:      a.LunID,
		})
	}
	return assocs, nil
}

// CreateTargetExtent binds a target to an extent at the given LUN.
func (c *Client) CreateTargetExtent(ctx context.Context, targetID, extentID, lun int) (*types.Association, error) {
	payload := map[string]interface{}{
		"target": targetID,
		"extent": extentID,
		"lunid":  lun,
	}
	var a targetExtentJSON
	if err := c.postJSON(ctx, "/iscsi/targetextent", payload, &a); err != nil {
		return nil, err
	}
	return &types.Association{ID: a.ID, TargetID: a.Target, ExtentID: a.Extent, LUN: a.LunID}, nil
}

// ServiceState returns the state string of the named service
// (e.g. "RUNNING", "STOPPED").
func (c *Client) ServiceState(ctx context.Context, service string) (string, error) {
	var s serviceJSON
	if err := c.getJSON(ctx, "/service/id/"+service, &s); err != nil {
		return "", err
	}
	return s.State, nil
}

// StartService starts the named service.
func (c *Client) StartService(ctx context.Context, service string) error {
	payload := map[string]interface{}{"service": service}
	return c.postJSON(ctx, "/service/start", payload, nil)
}
