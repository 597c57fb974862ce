package handler

import "net/http"

func (h *Handler) GetSupplies(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取物资目录成功", h.optimizer.Catalog().Items)
}

func (h *Handler) GetDisasters(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取灾害类型成功", h.optimizer.Catalog().Disasters())
}
