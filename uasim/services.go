package uasim

import (
	"context"

	"github.com/wippyai/opcua-bridge/ua"
)

func (s *Server) Connect(ctx context.Context, endpoint string, creds ua.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.enter(ServiceConnect, nil); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds != nil && *s.creds != creds {
		return ua.StatusBadInvalidArgument
	}
	s.connected = true
	s.endpoint = endpoint
	return nil
}

func (s *Server) Disconnect(ctx context.Context) error {
	if err := s.enter(ServiceDisconnect, nil); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	clear(s.continuations)
	return nil
}

func (s *Server) Browse(ctx context.Context, id ua.NodeID) (ua.BrowseResult, error) {
	if err := s.enter(ServiceBrowse, id); err != nil {
		return ua.BrowseResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ua.BrowseResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.lookup(id)
	if !ok {
		return ua.BrowseResult{StatusCode: ua.StatusBadNodeIDUnknown}, nil
	}

	refs := make([]ua.ReferenceDescription, 0, len(n.children))
	for _, c := range n.children {
		refs = append(refs, ua.ReferenceDescription{
			ReferenceTypeID: c.refType,
			NodeID:          c.id,
			BrowseName:      ua.QualifiedName{Name: c.name, NamespaceIndex: c.id.Namespace()},
			DisplayName:     c.name,
			NodeClass:       c.class,
			IsForward:       true,
		})
	}
	return s.pageLocked(refs), nil
}

func (s *Server) BrowseNext(ctx context.Context, continuation []byte) (ua.BrowseResult, error) {
	if err := s.enter(ServiceBrowseNext, nil); err != nil {
		return ua.BrowseResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ua.BrowseResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(continuation)
	rest, ok := s.continuations[key]
	if !ok {
		return ua.BrowseResult{StatusCode: ua.StatusBadContinuationPoint}, nil
	}
	delete(s.continuations, key)
	return s.pageLocked(rest), nil
}

// pageLocked returns the first page of refs, parking the rest behind a
// continuation point.
func (s *Server) pageLocked(refs []ua.ReferenceDescription) ua.BrowseResult {
	if s.pageSize <= 0 || len(refs) <= s.pageSize {
		return ua.BrowseResult{References: refs}
	}
	s.nextCP++
	key := continuationKey(s.nextCP)
	s.continuations[key] = refs[s.pageSize:]
	return ua.BrowseResult{
		References:        refs[:s.pageSize],
		ContinuationPoint: []byte(key),
	}
}

func (s *Server) TranslateBrowsePath(ctx context.Context, start ua.NodeID, path []ua.RelativePathElement) (ua.NodeID, error) {
	if err := s.enter(ServiceTranslate, start); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, ua.StatusBadNothingToDo
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.lookup(start)
	if !ok {
		return nil, ua.StatusBadNodeIDUnknown
	}

	for _, elem := range path {
		var next *node
		for _, c := range n.children {
			if c.name != elem.TargetName.Name || c.id.Namespace() != elem.TargetName.NamespaceIndex {
				continue
			}
			if !referenceMatches(elem, c.refType) {
				continue
			}
			next = c
			break
		}
		if next == nil {
			return nil, ua.StatusBadNoMatch
		}
		n = next
	}
	return n.id, nil
}

func referenceMatches(elem ua.RelativePathElement, ref ua.NodeID) bool {
	if elem.ReferenceTypeID == nil {
		return true
	}
	if ua.Equal(elem.ReferenceTypeID, ref) {
		return true
	}
	// Every reference the simulator creates is hierarchical.
	return elem.IncludeSubtypes && ua.Equal(elem.ReferenceTypeID, ua.HierarchicalReferences)
}

func (s *Server) Read(ctx context.Context, ids []ua.NodeID) ([]ua.DataValue, error) {
	if err := s.enter(ServiceRead, first(ids)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ua.StatusBadNothingToDo
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ua.DataValue, len(ids))
	for i, id := range ids {
		n, ok := s.lookup(id)
		if !ok || n.class != ua.NodeClassVariable {
			out[i].Status = ua.StatusBadNodeIDUnknown
			continue
		}
		out[i].Value = cloneVariant(n.value)
	}
	return out, nil
}

func (s *Server) Write(ctx context.Context, values []ua.WriteValue) ([]ua.StatusCode, error) {
	if err := s.enter(ServiceWrite, firstWrite(values)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, ua.StatusBadNothingToDo
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ua.StatusCode, len(values))
	for i, wv := range values {
		n, ok := s.lookup(wv.NodeID)
		if !ok || n.class != ua.NodeClassVariable {
			out[i] = ua.StatusBadNodeIDUnknown
			continue
		}
		if !compatible(n.value, wv.Value) {
			out[i] = ua.StatusBadTypeMismatch
			continue
		}
		n.value = cloneVariant(wv.Value)
	}
	return out, nil
}

// compatible accepts a write that keeps the variable's type and shape.
func compatible(cur, next ua.Variant) bool {
	if cur.Type == ua.TypeNull {
		return true
	}
	if cur.Type != next.Type || cur.Count != next.Count {
		return false
	}
	if cur.Type != ua.TypeExtensionObject {
		return len(cur.Raw) == len(next.Raw)
	}
	if cur.Ext == nil || next.Ext == nil {
		return cur.Ext == next.Ext
	}
	return ua.Equal(cur.Ext.TypeID, next.Ext.TypeID) && len(cur.Ext.Body) == len(next.Ext.Body)
}

func (s *Server) Call(ctx context.Context, req ua.CallMethodRequest) (ua.CallResult, error) {
	if err := s.enter(ServiceCall, req.MethodID); err != nil {
		return ua.CallResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ua.CallResult{}, err
	}

	s.mu.Lock()
	obj, ok := s.lookup(req.ObjectID)
	if !ok {
		s.mu.Unlock()
		return ua.CallResult{StatusCode: ua.StatusBadNodeIDUnknown}, nil
	}
	var fn MethodFunc
	for _, c := range obj.children {
		if c.class == ua.NodeClassMethod && ua.Equal(c.id, s.canonical(req.MethodID)) {
			fn = c.method
			break
		}
	}
	s.mu.Unlock()

	if fn == nil {
		return ua.CallResult{StatusCode: ua.StatusBadMethodInvalid}, nil
	}
	args := make([]ua.Variant, len(req.Arguments))
	for i, a := range req.Arguments {
		args[i] = cloneVariant(a)
	}
	outputs, status := fn(args)
	return ua.CallResult{Outputs: outputs, StatusCode: status}, nil
}

func (s *Server) RegisterNodes(ctx context.Context, ids []ua.NodeID) ([]ua.NodeID, error) {
	if err := s.enter(ServiceRegisterNodes, first(ids)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ua.NodeID, len(ids))
	for i, id := range ids {
		if _, ok := s.lookup(id); !ok {
			return nil, ua.StatusBadNodeIDUnknown
		}
		s.nextAlias++
		alias := ua.NumericNodeID{NS: id.Namespace(), ID: s.nextAlias}
		s.aliases[alias.String()] = id
		out[i] = alias
	}
	return out, nil
}

func (s *Server) UnregisterNodes(ctx context.Context, ids []ua.NodeID) error {
	if err := s.enter(ServiceUnregisterNodes, first(ids)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.aliases, id.String())
	}
	return nil
}

// canonical maps a register-nodes alias back to the node it stands for.
func (s *Server) canonical(id ua.NodeID) ua.NodeID {
	if id == nil {
		return nil
	}
	if real, ok := s.aliases[id.String()]; ok {
		return real
	}
	return id
}

func first(ids []ua.NodeID) ua.NodeID {
	if len(ids) == 0 {
		return nil
	}
	return ids[0]
}

func firstWrite(values []ua.WriteValue) ua.NodeID {
	if len(values) == 0 {
		return nil
	}
	return values[0].NodeID
}
