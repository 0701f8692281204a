package state

import (
	"context"
	"strconv"
	"strings"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/perm"
)

func (c *Controller) LoadServicesOp() Op {
	return c.op("load services", nil, refreshServices)
}

func (c *Controller) LoadServices(ctx context.Context) error {
	return c.run(ctx, c.LoadServicesOp(), c.requireSession())
}

func (c *Controller) service(id int) *model.Service {
	for i := range c.services {
		if c.services[i].ID == id {
			return &c.services[i]
		}
	}
	return nil
}

// FindService looks a cached service up by id or (case-insensitive) name.
func (c *Controller) FindService(ref string) (model.Service, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.Atoi(ref); err == nil {
		if sv := c.service(id); sv != nil {
			return *sv, nil
		}
		return model.Service{}, errNotFound("service", ref)
	}
	if sv, ok := c.ServiceByName(ref); ok {
		return sv, nil
	}
	return model.Service{}, errNotFound("service", ref)
}

// ServiceByName matches on the trimmed, case-insensitive name. The first match wins.
func (c *Controller) ServiceByName(name string) (model.Service, bool) {
	key := serviceKey(name)
	if key == "" {
		return model.Service{}, false
	}
	for _, sv := range c.services {
		if serviceKey(sv.Name) == key {
			return sv, true
		}
	}
	return model.Service{}, false
}

// DuplicateServiceIDs returns the ids whose normalized name is shared with another id.
func (c *Controller) DuplicateServiceIDs() map[int]bool {
	return DuplicateServiceIDs(c.services)
}

func DuplicateServiceIDs(services []model.Service) map[int]bool {
	byName := map[string][]int{}
	for _, sv := range services {
		k := serviceKey(sv.Name)
		if k == "" {
			continue
		}
		byName[k] = append(byName[k], sv.ID)
	}
	out := map[int]bool{}
	for _, ids := range byName {
		distinct := map[int]bool{}
		for _, id := range ids {
			distinct[id] = true
		}
		if len(distinct) < 2 {
			continue
		}
		for id := range distinct {
			out[id] = true
		}
	}
	return out
}

func serviceKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateService(in api.ServiceInput) (api.ServiceInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Link = strings.TrimSpace(in.Link)
	in.Note = strings.TrimSpace(in.Note)
	if in.Name == "" {
		return in, invalid("name", "is required")
	}
	for _, n := range []struct {
		field string
		v     float64
	}{{"price", in.Price}, {"fee", in.Fee}, {"charge", in.Charge}} {
		if err := nonNegative(n.field, n.v); err != nil {
			return in, err
		}
	}
	return in, nil
}

func (c *Controller) CreateServiceOp(in api.ServiceInput) (Op, error) {
	if err := c.requireSession(); err != nil {
		return Op{}, err
	}
	if !c.caps.EditServices {
		return Op{}, perm.Denied{Role: c.session.Role, Action: "create services"}
	}
	in, err := validateService(in)
	if err != nil {
		return Op{}, err
	}
	op := c.op("create service", func(ctx context.Context, b Backend, _ *Result) error {
		return b.CreateService(ctx, in)
	}, refreshServices)
	op.Done = "Service created: " + in.Name
	return op, nil
}

func (c *Controller) CreateService(ctx context.Context, in api.ServiceInput) error {
	op, err := c.CreateServiceOp(in)
	return c.run(ctx, op, err)
}

func (c *Controller) UpdateServiceOp(id int, in api.ServiceInput) (Op, error) {
	if err := c.requireSession(); err != nil {
		return Op{}, err
	}
	if !c.caps.EditServices {
		return Op{}, perm.Denied{Role: c.session.Role, Action: "edit services"}
	}
	if c.service(id) == nil {
		return Op{}, errNotFound("service", strconv.Itoa(id))
	}
	in, err := validateService(in)
	if err != nil {
		return Op{}, err
	}
	op := c.op("update service", func(ctx context.Context, b Backend, _ *Result) error {
		return b.UpdateService(ctx, id, in)
	}, refreshServices)
	op.Done = "Service updated: " + in.Name
	return op, nil
}

func (c *Controller) UpdateService(ctx context.Context, id int, in api.ServiceInput) error {
	op, err := c.UpdateServiceOp(id, in)
	return c.run(ctx, op, err)
}

func (c *Controller) DeleteServiceOp(id int) (Op, error) {
	if err := c.requireSession(); err != nil {
		return Op{}, err
	}
	if !c.caps.DeleteServices {
		return Op{}, perm.Denied{Role: c.session.Role, Action: "delete services"}
	}
	sv := c.service(id)
	if sv == nil {
		return Op{}, errNotFound("service", strconv.Itoa(id))
	}
	op := c.op("delete service", func(ctx context.Context, b Backend, _ *Result) error {
		return b.DeleteService(ctx, id)
	}, refreshServices)
	op.Done = "Service deleted: " + sv.Name
	return op, nil
}

func (c *Controller) DeleteService(ctx context.Context, id int) error {
	op, err := c.DeleteServiceOp(id)
	return c.run(ctx, op, err)
}
