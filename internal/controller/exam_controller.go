package controller

import (
	"examprep_backend/internal/service"
	"examprep_backend/internal/util"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ExamController struct {
	ExamService *service.ExamService
}

func NewExamController(examService *service.ExamService) *ExamController {
	return &ExamController{ExamService: examService}
}

// StartExamRequest count 为 0 时使用默认题量
type StartExamRequest struct {
	SubjectIDs []uint `json:"subjectIds" binding:"required,min=1"`
	Count      int    `json:"count" binding:"min=0"`
}

type AnswerRequest struct {
	Option string `json:"option" binding:"required"`
}

// JumpRequest index 从 0 开始
type JumpRequest struct {
	Index *int `json:"index" binding:"required"`
}

// examParams 解析当前用户和路径中的考试 ID
func examParams(ctx *gin.Context) (userID, examID uint, ok bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, 0, false
	}
	examID = util.MustParseUint(ctx.Param("id"))
	if examID == 0 {
		util.BadRequest(ctx, "invalid exam id")
		return 0, 0, false
	}
	return claims.UserID, examID, true
}

// StartExam godoc
// @Summary 开始考试
// @Description 从所选科目随机抽题并返回第一题
// @Tags 考试
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body body StartExamRequest true "科目和题量"
// @Success 201 {object} util.Response{data=service.ExamView}
// @Failure 404 {object} util.Response "所选科目没有可用题目"
// @Failure 409 {object} util.Response "正在开始另一场考试"
// @Router /exams [post]
func (c *ExamController) StartExam(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req StartExamRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.ExamService.StartExam(ctx.Request.Context(), claims.UserID, req.SubjectIDs, req.Count)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// Current godoc
// @Summary 当前题目
// @Tags 考试
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.ExamView}
// @Router /exams/{id}/current [get]
func (c *ExamController) Current(ctx *gin.Context) {
	userID, examID, ok := examParams(ctx)
	if !ok {
		return
	}
	c.respondView(ctx)(c.ExamService.Current(ctx.Request.Context(), userID, examID))
}

// Answer godoc
// @Summary 作答当前题目
// @Tags 考试
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   id path int true "考试ID"
// @Param   body body AnswerRequest true "选项 A-D"
// @Success 200 {object} util.Response{data=service.ExamView}
// @Router /exams/{id}/answer [put]
func (c *ExamController) Answer(ctx *gin.Context) {
	userID, examID, ok := examParams(ctx)
	if !ok {
		return
	}
	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	c.respondView(ctx)(c.ExamService.RecordAnswer(ctx.Request.Context(), userID, examID, req.Option))
}

// Next godoc
// @Summary 下一题
// @Tags 考试
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.ExamView}
// @Failure 409 {object} util.Response "已是最后一题"
// @Router /exams/{id}/next [post]
func (c *ExamController) Next(ctx *gin.Context) {
	userID, examID, ok := examParams(ctx)
	if !ok {
		return
	}
	c.respondView(ctx)(c.ExamService.Advance(ctx.Request.Context(), userID, examID))
}

// Prev godoc
// @Summary 上一题
// @Tags 考试
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.ExamView}
// @Failure 409 {object} util.Response "已是第一题"
// @Router /exams/{id}/prev [post]
func (c *ExamController) Prev(ctx *gin.Context) {
	userID, examID, ok := examParams(ctx)
	if !ok {
		return
	}
	c.respondView(ctx)(c.ExamService.Retreat(ctx.Request.Context(), userID, examID))
}

// Jump godoc
// @Summary 跳转到指定题目
// @Tags 考试
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   id path int true "考试ID"
// @Param   body body JumpRequest true "题目序号（从0开始）"
// @Success 200 {object} util.Response{data=service.ExamView}
// @Router /exams/{id}/jump [post]
func (c *ExamController) Jump(ctx *gin.Context) {
	userID, examID, ok := examParams(ctx)
	if !ok {
		return
	}
	var req JumpRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	c.respondView(ctx)(c.ExamService.JumpTo(ctx.Request.Context(), userID, examID, *req.Index))
}

func (c *ExamController) respondView(ctx *gin.Context) func(*service.ExamView, error) {
	return func(view *service.ExamView, err error) {
		if err != nil {
			util.HandleError(ctx, err)
			return
		}
		util.Success(ctx, view)
	}
}

// Finish godoc
// @Summary 交卷
// @Description 计算成绩并保存；保存失败时返回 503 和已计算的成绩，可调用 /save 重试
// @Tags 考试
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.FinishOutcome}
// @Failure 503 {object} util.Response{data=service.FinishOutcome}
// @Router /exams/{id}/finish [post]
func (c *ExamController) Finish(ctx *gin.Context) {
	userID, examID, ok := examParams(ctx)
	if !ok {
		return
	}

	outcome, err := c.ExamService.Finish(ctx.Request.Context(), userID, examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if !outcome.Saved {
		ctx.JSON(http.StatusServiceUnavailable, util.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "result computed but not saved, please retry",
			Data:    outcome,
		})
		return
	}
	util.Success(ctx, outcome)
}

// SaveResult godoc
// @Summary 重试保存成绩
// @Tags 考试
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.FinishOutcome}
// @Failure 503 {object} util.Response
// @Router /exams/{id}/save [post]
func (c *ExamController) SaveResult(ctx *gin.Context) {
	userID, examID, ok := examParams(ctx)
	if !ok {
		return
	}

	outcome, err := c.ExamService.SaveResult(ctx.Request.Context(), userID, examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, outcome)
}

// Result godoc
// @Summary 考试成绩
// @Tags 考试
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.FinishOutcome}
// @Router /exams/{id}/result [get]
func (c *ExamController) Result(ctx *gin.Context) {
	userID, examID, ok := examParams(ctx)
	if !ok {
		return
	}

	outcome, err := c.ExamService.Result(ctx.Request.Context(), userID, examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, outcome)
}

// ResultPDF godoc
// @Summary 下载成绩单 PDF
// @Tags 考试
// @Security ApiKeyAuth
// @Produce  application/pdf
// @Param   id path int true "考试ID"
// @Success 200 {file} file
// @Router /exams/{id}/result.pdf [get]
func (c *ExamController) ResultPDF(ctx *gin.Context) {
	userID, examID, ok := examParams(ctx)
	if !ok {
		return
	}

	data, err := c.ExamService.ResultReport(ctx.Request.Context(), userID, examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="exam-%d.pdf"`, examID))
	ctx.Data(http.StatusOK, util.MimePDF, data)
}

// History godoc
// @Summary 考试历史
// @Tags 考试
// @Security ApiKeyAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]service.ExamSummary}
// @Router /exams [get]
func (c *ExamController) History(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	list, err := c.ExamService.History(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Detail godoc
// @Summary 考试详情
// @Tags 考试
// @Security ApiKeyAuth
// @Produce  json
// @Param   id path int true "考试ID"
// @Success 200 {object} util.Response{data=model.Exam}
// @Router /exams/{id} [get]
func (c *ExamController) Detail(ctx *gin.Context) {
	userID, examID, ok := examParams(ctx)
	if !ok {
		return
	}

	exam, err := c.ExamService.Detail(ctx.Request.Context(), userID, examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}
